package tools

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// OpenYouTube opens a YouTube search for the query in the default
// browser. Returns whether an external app was launched plus the spoken
// confirmation.
func OpenYouTube(query string) (bool, string) {
	target := "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)

	if err := openBrowser(target); err != nil {
		return false, "Error opening YouTube."
	}
	return true, "Opening YouTube..."
}

// openBrowser launches the platform's URL opener without waiting for it
func openBrowser(target string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
