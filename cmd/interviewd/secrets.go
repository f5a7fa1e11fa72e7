package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"interview/pkg/config"
)

// providerSecretName maps a provider to the secret it needs. Ollama runs
// locally and needs none.
func providerSecretName(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// handleSecrets loads credentials for the configured provider. Precedence:
// encrypted secrets file, then environment, then an interactive prompt when
// running on a terminal.
func handleSecrets(projectDir, provider string) error {
	if config.SecretsFileExists(projectDir) {
		password := os.Getenv("INTERVIEW_PASSWORD")
		if password == "" {
			var err error
			password, err = promptPassword("Enter project password: ")
			if err != nil {
				return err
			}
		}
		secrets, err := config.DecryptSecretsFile(projectDir, password)
		if err != nil {
			return fmt.Errorf("failed to decrypt secrets: %w", err)
		}
		config.SetDecryptedSecrets(secrets)
		fmt.Println("🔓 Credentials loaded.")
	}

	secretName := providerSecretName(provider)
	if secretName == "" {
		return nil
	}
	if _, err := config.GetSecret(secretName); err == nil {
		return nil
	}

	if !term.IsTerminal(syscall.Stdin) {
		return fmt.Errorf("%s not set; provide it via environment or secrets file", secretName)
	}
	return promptAndStoreKey(projectDir, secretName)
}

// promptAndStoreKey asks for the missing API key and optionally persists it
// to the encrypted secrets file.
func promptAndStoreKey(projectDir, secretName string) error {
	fmt.Printf("Enter %s: ", secretName)
	key, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}
	if len(key) == 0 {
		return fmt.Errorf("%s is required for the configured provider", secretName)
	}
	config.SetSecret(secretName, string(key))
	zero(key)

	fmt.Print("Save encrypted to the project secrets file? [y/N]: ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() || !strings.EqualFold(strings.TrimSpace(scanner.Text()), "y") {
		return nil
	}

	password, err := promptNewPassword()
	if err != nil {
		return err
	}
	if err := config.SaveSecretsToFile(projectDir, password); err != nil {
		return fmt.Errorf("failed to save secrets: %w", err)
	}
	fmt.Println("✅ Credentials saved to .interview/secrets.json.enc (file permissions: 0600)")
	fmt.Println("💡 Store the password in INTERVIEW_PASSWORD for passwordless startup.")
	return nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	result := string(password)
	zero(password)
	return result, nil
}

// promptNewPassword prompts with confirmation.
func promptNewPassword() (string, error) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		first, err := promptPassword("Choose a password for this project: ")
		if err != nil {
			return "", err
		}
		second, err := promptPassword("Confirm password: ")
		if err != nil {
			return "", err
		}
		if first == second {
			return first, nil
		}
		if attempt < maxAttempts {
			fmt.Println("❌ Passwords do not match. Please try again.")
		}
	}
	return "", fmt.Errorf("passwords do not match after %d attempts", maxAttempts)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
