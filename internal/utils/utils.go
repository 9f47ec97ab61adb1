package utils

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/rs/xid"
)

func GenerateID() string {
	return xid.New().String()
}

func GetCommit() string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}

	return strings.TrimSpace(out.String())
}
