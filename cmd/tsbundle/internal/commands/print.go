package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/wolfeidau/tsbundle/internal/variants"
	"gopkg.in/yaml.v3"
)

type PrintCmd struct {
	ProjectFlags `embed:""`
}

// variantView adds the resolved values hidden behind descriptor functions.
type variantView struct {
	variants.Descriptor `yaml:",inline"`

	Extension string `yaml:"extension"`
	Output    string `yaml:"output"`
	OnSuccess bool   `yaml:"onSuccess"`
}

func (p *PrintCmd) Run(ctx context.Context, globals *Globals) error {
	project, err := p.Resolve()
	if err != nil {
		return err
	}

	return writeDescriptors(os.Stdout, project.Descriptors())
}

func writeDescriptors(w io.Writer, descriptors []variants.Descriptor) error {
	views := make([]variantView, 0, len(descriptors))
	for _, d := range descriptors {
		views = append(views, variantView{
			Descriptor: d,
			Extension:  d.Extension(),
			Output:     d.OutputFile(),
			OnSuccess:  d.OnSuccess != nil,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(views); err != nil {
		return fmt.Errorf("failed to encode variants: %w", err)
	}

	return enc.Close()
}
