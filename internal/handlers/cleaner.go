package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/juliusdelta/oatmeal/internal/utils"
)

// artifacts are model outputs for non-speech audio, dropped on ingest.
var artifacts = []string{"[BLANK_AUDIO]", "[INAUDIBLE]", "(silence)"}

// Cleaner cleans segment text
type Cleaner struct {
}

// NewCleaner creates a text cleaner
func NewCleaner() *Cleaner {
	res := Cleaner{}
	goapp.Log.Info().Msg("Cleaner")
	return &res
}

func (sp *Cleaner) Process(ctx context.Context, text string) (string, error) {
	defer utils.MeasureTime("cleaner", time.Now())
	return sp.transform(ctx, text)
}

func (sp *Cleaner) transform(ctx context.Context, text string) (string, error) {
	for _, a := range artifacts {
		text = strings.ReplaceAll(text, a, "")
	}
	text = strings.ReplaceAll(text, "_", " ")
	text = strings.Join(strings.Fields(text), " ")
	return text, nil
}
