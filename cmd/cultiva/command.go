package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

func apiAddress() string {
	if api := os.Getenv("CULTIVA_API"); api != "" {
		return strings.TrimSuffix(api, "/")
	}
	return "http://localhost:5000"
}

// command runs name on the node at api and copies the JSON result to w.
func command(w io.Writer, api, name string, args []string) error {
	params := url.Values{"command": {name}}
	for _, arg := range args {
		params.Add("arguments", arg)
	}
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Get(fmt.Sprintf("%s/run?%s", api, params.Encode()))
	if err != nil {
		return errors.Wrap(err, "calling node")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
