package factories

import "os"

// APIKeys holds provider credentials read from the environment.
type APIKeys struct {
	OpenAI     string
	Deepgram   string
	ElevenLabs string
	Cartesia   string
	Together   string
	Groq       string
	DeepSeek   string
	OpenRouter string
	Fireworks  string
	Cerebras   string
	XAI        string
	Mistral    string
	Perplexity string
}

// APIKeysFromEnv reads every known *_API_KEY variable.
func APIKeysFromEnv() APIKeys {
	return APIKeysFromLookup(os.Getenv)
}

func APIKeysFromLookup(getenv func(string) string) APIKeys {
	return APIKeys{
		OpenAI:     getenv("OPENAI_API_KEY"),
		Deepgram:   getenv("DEEPGRAM_API_KEY"),
		ElevenLabs: getenv("ELEVENLABS_API_KEY"),
		Cartesia:   getenv("CARTESIA_API_KEY"),
		Together:   getenv("TOGETHER_API_KEY"),
		Groq:       getenv("GROQ_API_KEY"),
		DeepSeek:   getenv("DEEPSEEK_API_KEY"),
		OpenRouter: getenv("OPENROUTER_API_KEY"),
		Fireworks:  getenv("FIREWORKS_API_KEY"),
		Cerebras:   getenv("CEREBRAS_API_KEY"),
		XAI:        getenv("XAI_API_KEY"),
		Mistral:    getenv("MISTRAL_API_KEY"),
		Perplexity: getenv("PERPLEXITY_API_KEY"),
	}
}
