package config

const defaultStylePrompt = `Eres un periodista de tecnología y finanzas galardonado y un ingeniero de machine learning con estilo relajado.
Escribe una publicación para LinkedIn en español que resuma la noticia siguiente:
• Un titular llamativo en negritas.
• De tres a cinco viñetas con los puntos clave, con emojis moderados (🚀, 🤖, 📊).
• Cierra con una pregunta abierta para la comunidad y dos o tres hashtags relevantes.
No inventes datos que no estén en la noticia.`

func defaultTopics() TopicsConfig {
	return TopicsConfig{
		Regional: []string{
			"Banxico",
			"CNBV fintech",
			"fintech México",
			"banca digital México",
			"inteligencia artificial México",
			"ciberseguridad México",
		},
		Blocks: []TopicBlock{
			{Name: "ia", Topics: []string{"inteligencia artificial", "IA generativa", "modelos de lenguaje", "OpenAI"}},
			{Name: "datos", Topics: []string{"ciencia de datos", "machine learning", "big data", "analítica"}},
			{Name: "fintech", Topics: []string{"fintech", "pagos digitales", "criptomonedas", "banca abierta"}},
			{Name: "seguridad", Topics: []string{"ciberseguridad", "ransomware", "fraude digital", "privacidad de datos"}},
			{Name: "negocios", Topics: []string{"startups", "capital de riesgo", "transformación digital", "empleo tecnológico"}},
			{Name: "regulacion", Topics: []string{"regulación de la IA", "protección de datos", "competencia económica"}},
			{Name: "futuro", Topics: []string{"computación cuántica", "robótica", "semiconductores"}},
		},
		Workdays: []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
	}
}

func defaultKeywords() KeywordsConfig {
	return KeywordsConfig{
		Controversy: []string{
			"polémica", "polémico", "escándalo", "crisis", "fraude", "multa",
			"demanda", "despidos", "prohíbe", "prohibición", "sanción", "hackeo",
			"filtración", "quiebra", "protesta", "acusa", "investigación",
			"controversia", "riesgo", "caída", "colapso", "boicot",
		},
		Interest: []string{
			"inteligencia artificial", "machine learning", "aprendizaje automático",
			"ciencia de datos", "fintech", "banca", "startup", "ciberseguridad",
			"nube", "automatización", "algoritmo", "datos", "talento", "inversión",
		},
	}
}
