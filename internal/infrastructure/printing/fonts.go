package printing

import (
	"os"

	"github.com/maisgenetica/backend/internal/domain/receipt"
)

// LoadFontFace reads a TrueType family from disk. An empty regular path
// returns nil, which selects the built-in Helvetica.
func LoadFontFace(family, regularPath, boldPath string) (*receipt.FontFace, error) {
	if regularPath == "" {
		return nil, nil
	}
	regular, err := os.ReadFile(regularPath)
	if err != nil {
		return nil, renderError(StageFont, regularPath, err)
	}
	face := &receipt.FontFace{Family: family, Regular: regular}
	if boldPath != "" {
		bold, err := os.ReadFile(boldPath)
		if err != nil {
			return nil, renderError(StageFont, boldPath, err)
		}
		face.Bold = bold
	}
	return face, nil
}
