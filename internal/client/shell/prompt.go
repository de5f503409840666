package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/opsconsole/internal/models"
)

// PromptCredential reads the credential handed over by the external
// login flow.
func PromptCredential(scanner *bufio.Scanner, out io.Writer) (models.Credential, error) {
	var cred models.Credential

	token, err := prompt(scanner, out, "Enter access token: ")
	if err != nil {
		return cred, err
	}
	if token == "" {
		return cred, errors.New("access token is required")
	}
	cred.AccessToken = token

	if cred.RefreshToken, err = prompt(scanner, out, "Enter refresh token (optional): "); err != nil {
		return cred, err
	}

	role, err := prompt(scanner, out, "Enter role (admin/superadmin, optional): ")
	if err != nil {
		return cred, err
	}
	cred.Role = models.Role(strings.ToLower(role))
	if cred.Role != "" && !cred.Role.Valid() {
		return cred, fmt.Errorf("unknown role %q", role)
	}
	return cred, nil
}

func prompt(scanner *bufio.Scanner, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(scanner.Text()), nil
}
