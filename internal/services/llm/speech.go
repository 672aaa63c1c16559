package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"reelsmith/internal/services"
)

// maxSpeechInput is the provider's per-request character limit, with margin.
const maxSpeechInput = 4000

// Speak synthesizes text as MP3 audio. Long text is split on paragraph and
// sentence boundaries and the resulting MP3 segments are concatenated.
func (c *Client) Speak(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("llm speech: %w: text required", services.ErrValidation)
	}
	if !c.Configured() {
		return nil, errMissingKey("llm speech")
	}
	if voice = strings.TrimSpace(voice); voice == "" {
		voice = string(openai.VoiceAlloy)
	}

	var audio bytes.Buffer
	for i, chunk := range SplitSpeech(text, maxSpeechInput) {
		segment, err := c.speakOnce(ctx, chunk, voice)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
		audio.Write(segment)
	}
	return audio.Bytes(), nil
}

func (c *Client) speakOnce(ctx context.Context, text, voice string) ([]byte, error) {
	attempts := c.retryAttempts()
	for attempt := 1; ; attempt++ {
		resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(c.cfg.SpeechModel),
			Input:          text,
			Voice:          openai.SpeechVoice(voice),
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err == nil {
			data, readErr := io.ReadAll(resp)
			resp.Close()
			if readErr != nil {
				err = readErr
			} else if len(data) == 0 {
				return nil, services.Wrap(services.ErrInvalidResponse, "llm", "speech", "empty audio", nil)
			} else {
				return data, nil
			}
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return nil, classify("speech", err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, classify("speech", err)
		}
	}
}

// SplitSpeech breaks text into chunks of at most limit bytes, preferring
// paragraph, then sentence, then word boundaries.
func SplitSpeech(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	var chunks []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}
	for _, unit := range speechUnits(text, limit) {
		if current.Len() > 0 && current.Len()+1+len(unit) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(unit)
	}
	flush()
	return chunks
}

// speechUnits splits text into sentences, breaking any sentence longer than
// limit on word boundaries.
func speechUnits(text string, limit int) []string {
	var units []string
	for _, paragraph := range strings.Split(text, "\n") {
		for _, sentence := range splitSentences(paragraph) {
			if len(sentence) <= limit {
				units = append(units, sentence)
				continue
			}
			var part strings.Builder
			for _, word := range strings.Fields(sentence) {
				if part.Len() > 0 && part.Len()+1+len(word) > limit {
					units = append(units, part.String())
					part.Reset()
				}
				if part.Len() > 0 {
					part.WriteByte(' ')
				}
				part.WriteString(word)
			}
			if part.Len() > 0 {
				units = append(units, part.String())
			}
		}
	}
	return units
}

func splitSentences(paragraph string) []string {
	var out []string
	start := 0
	for i := 0; i < len(paragraph); i++ {
		switch paragraph[i] {
		case '.', '!', '?':
			if i+1 == len(paragraph) || paragraph[i+1] == ' ' {
				if s := strings.TrimSpace(paragraph[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(paragraph[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
