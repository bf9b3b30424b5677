package llm

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// imagePart reads an image file and wraps it as a media part. The content
// type is detected from magic bytes rather than trusted from the file
// extension; the extension is only a fallback for formats the sniffer does
// not recognize.
func imagePart(imagePath string) (*ai.Part, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", imagePath, err)
	}

	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		switch strings.ToLower(filepath.Ext(imagePath)) {
		case ".jpg", ".jpeg":
			mediaType = "image/jpeg"
		case ".png":
			mediaType = "image/png"
		case ".gif":
			mediaType = "image/gif"
		case ".webp":
			mediaType = "image/webp"
		default:
			return nil, fmt.Errorf("file is not a recognized image: %s", imagePath)
		}
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return ai.NewMediaPart(mediaType, "data:"+mediaType+";base64,"+encoded), nil
}
