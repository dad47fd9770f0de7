package promptutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

//go:generate mockgen -destination=mocks/mock_prompt.go -package=mock_prompt github.com/BerryBytes/portalctl/utils/prompt Prompter

type Prompter interface {
	PromptForInput(label, defaultValue string) (string, error)
	PromptForPassword(label string) (string, error)
	PromptForSelection(label string, items []string) (string, error)
	PromptForConfirmation(prompt string) bool
}

type RealPrompter struct{}

var ErrInterrupted = errors.New("operation interrupted")

func (p *RealPrompter) HandlePromptError(err error) error {
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			fmt.Println("\nReceived termination signal. Exiting.")
			return ErrInterrupted
		}
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func (p *RealPrompter) PromptForInput(label, defaultValue string) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: defaultValue,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("value cannot be empty")
			}
			return nil
		},
	}
	result, err := prompt.Run()
	if err := p.HandlePromptError(err); err != nil {
		return "", err
	}
	return strings.TrimSpace(result), nil
}

func (p *RealPrompter) PromptForPassword(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return errors.New("password cannot be empty")
			}
			return nil
		},
	}
	result, err := prompt.Run()
	if err := p.HandlePromptError(err); err != nil {
		return "", err
	}
	return result, nil
}

func (p *RealPrompter) PromptForSelection(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
	}
	_, selected, err := prompt.Run()
	if err := p.HandlePromptError(err); err != nil {
		return "", err
	}
	return selected, nil
}

func (p *RealPrompter) PromptForConfirmation(prompt string) bool {
	promptInstance := promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
	}
	result, err := promptInstance.Run()
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(result), "y")
}

func NewPrompt() Prompter {
	return &RealPrompter{}
}
