package main

import (
	_ "embed"
	"io"
	"os"
	"path/filepath"
	"text/template"
)

//go:embed fireside.service
var firesideServiceEmbed string

type FiresideServiceParams struct {
	BinaryPath string
	User       string
	ConfigPath string
}

// SystemdServiceFile renders a unit file that runs this binary.
func SystemdServiceFile(w io.Writer, configPath string) error {
	path, err := os.Executable()
	if err != nil {
		return err
	}
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			configPath = abs
		}
	}

	return renderServiceFile(w, FiresideServiceParams{
		BinaryPath: path,
		User:       "pi",
		ConfigPath: configPath,
	})
}

func renderServiceFile(w io.Writer, params FiresideServiceParams) error {
	tmpl, err := template.New("fireside.service").Parse(firesideServiceEmbed)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, params)
}
