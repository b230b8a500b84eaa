// Command gltf2image renders glTF scenes to image files.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gltf2image",
		Short:         "Render glTF scenes to images",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRenderCommand())
	return root
}
