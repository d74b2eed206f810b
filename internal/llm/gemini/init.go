package gemini

import "athena/interview/internal/llm"

const providerName = "gemini"

// Importing this package makes AI_PROVIDER=gemini available.
func init() {
	llm.RegisterProvider(providerName, func() (llm.Provider, error) {
		cfg, err := NewConfig()
		if err != nil {
			return nil, err
		}
		return NewClient(cfg)
	})
}
