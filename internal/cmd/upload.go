package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taleyport/internal/backend"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload the full body and close-up photos",
	Long: `Upload the two photos used to render the child into the story.

The full body photo is sent as image1 and the close-up of the face as
image2. The printed URLs are the --image-url and --face-url of
'taleyport video'.

Examples:
  taleyport upload --full-body ./full.jpg --close-up ./face.jpg
  taleyport upload --full-body ./full.jpg --close-up ./face.jpg --format json`,
	Args: cobra.NoArgs,
	RunE: withContext(runUpload),
}

var (
	uploadFullBody string
	uploadCloseUp  string
	uploadFormat   string
)

func init() {
	uploadCmd.Flags().StringVar(&uploadFullBody, "full-body", "", "full body photo")
	uploadCmd.Flags().StringVar(&uploadCloseUp, "close-up", "", "close-up photo of the face")
	uploadCmd.Flags().StringVar(&uploadFormat, "format", formatText, formatUsage)
	_ = uploadCmd.MarkFlagRequired("full-body")
	_ = uploadCmd.MarkFlagRequired("close-up")

	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cctx *CommandContext, cmd *cobra.Command, args []string) error {
	if err := checkFormat(uploadFormat); err != nil {
		return err
	}

	fullBody, err := backend.ReadImageFile(uploadFullBody)
	if err != nil {
		return err
	}
	closeUp, err := backend.ReadImageFile(uploadCloseUp)
	if err != nil {
		return err
	}

	client, err := cctx.Client()
	if err != nil {
		return err
	}
	resp, err := client.UploadImages(cmd.Context(), fullBody, closeUp)
	if err != nil {
		return err
	}

	if structured(uploadFormat) {
		return printStructured(cctx.Out, uploadFormat, map[string]string{
			"image_url": resp.ImageURL(),
			"face_url":  resp.FaceURL(),
			"message":   resp.Message,
		})
	}

	fmt.Fprintln(cctx.Out, "✓ Images uploaded")
	fmt.Fprintf(cctx.Out, "  image URL: %s\n", resp.ImageURL())
	fmt.Fprintf(cctx.Out, "  face URL:  %s\n", resp.FaceURL())
	return nil
}
