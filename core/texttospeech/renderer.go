package texttospeech

import (
	"context"

	"github.com/koscakluka/lola/core/audio"
)

// Renderer turns text into a playable clip.
type Renderer interface {
	Render(ctx context.Context, text string) (audio.Clip, error)
}
