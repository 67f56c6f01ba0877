package rewrite

const systemWriter = "Eres un redactor profesional de noticias de tecnología y un ingeniero de machine learning millennial."

const pollPrompt = `Crea una encuesta de LinkedIn sobre esta noticia.

Título: %s
Resumen: %s

Responde solo con JSON, sin texto adicional:
{"question": "<pregunta breve>", "options": ["<opción>", "<opción>", "<opción>", "<opción>"]}

Reglas: exactamente cuatro opciones, cada una de 30 caracteres o menos, en español.`

const slidesPrompt = `Convierte esta noticia en un carrusel de LinkedIn de %d a %d diapositivas.

Título: %s
Resumen: %s

Responde solo con un arreglo JSON, sin texto adicional:
[{"title": "<título corto>", "body": "<una o dos frases>"}]

La primera diapositiva presenta la noticia y la última invita a comentar.`
