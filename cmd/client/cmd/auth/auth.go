package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd groups account commands.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Register, sign in and sign out",
}

func readLine(prompt string) string {
	fmt.Print(prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}
