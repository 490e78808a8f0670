package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// InputHandler reads user input from stdin.
type InputHandler struct {
	reader *bufio.Reader
}

// NewInputHandler creates a new input handler.
func NewInputHandler() *InputHandler {
	return &InputHandler{
		reader: bufio.NewReader(os.Stdin),
	}
}

// ReadLine reads a single line of input.
func (h *InputHandler) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := h.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadInput reads a line of input, absorbing multi-line pastes.
func (h *InputHandler) ReadInput(prompt string) (string, error) {
	fmt.Print(prompt)

	firstLine, err := h.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	firstLine = strings.TrimRight(firstLine, "\r\n")

	// More buffered data right after the newline means a paste.
	if h.reader.Buffered() > 0 {
		lines := []string{firstLine}
		for h.reader.Buffered() > 0 {
			line, err := h.reader.ReadString('\n')
			if err != nil {
				break
			}
			lines = append(lines, strings.TrimRight(line, "\r\n"))
		}
		return strings.Join(lines, "\n"), nil
	}

	return firstLine, nil
}

// Confirm asks a yes/no question.
func (h *InputHandler) Confirm(prompt string, defaultYes bool) (bool, error) {
	suffix := " [y/N]: "
	if defaultYes {
		suffix = " [Y/n]: "
	}

	response, err := h.ReadLine(prompt + suffix)
	if err != nil {
		return false, err
	}

	response = strings.ToLower(strings.TrimSpace(response))
	if response == "" {
		return defaultYes, nil
	}
	return response == "y" || response == "yes", nil
}

// ApprovalDecision is the parsed answer to an approval prompt:
// approved, or rejected with optional feedback.
type ApprovalDecision struct {
	Approved bool
	Feedback string
}

// ReadApproval prompts for an approve/reject decision. Answering "n" asks
// for optional feedback to pass back to the model.
func (h *InputHandler) ReadApproval() (ApprovalDecision, error) {
	for {
		response, err := h.ReadLine("Approve? [y]es / [n]o: ")
		if err != nil {
			return ApprovalDecision{}, err
		}

		switch strings.ToLower(strings.TrimSpace(response)) {
		case "y", "yes":
			return ApprovalDecision{Approved: true}, nil
		case "n", "no":
			feedback, err := h.ReadLine("Feedback for the model (optional): ")
			if err != nil {
				return ApprovalDecision{}, err
			}
			return ApprovalDecision{Approved: false, Feedback: feedback}, nil
		default:
			fmt.Println("Please answer y or n.")
		}
	}
}
