package transcript

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/harun/jsonlfmt/internal/tracing"
	"github.com/rs/zerolog"
)

// ErrInvalidUTF8 is returned when the input is not valid UTF-8 text
var ErrInvalidUTF8 = errors.New("input is not valid UTF-8")

// DefaultMaxLineSize bounds a single input line (64MB)
const DefaultMaxLineSize = 64 * 1024 * 1024

const previewLength = 80

// Config holds extractor configuration
type Config struct {
	MaxLineSize int // max bytes per input line
}

// DefaultConfig returns default extractor configuration
func DefaultConfig() Config {
	return Config{
		MaxLineSize: DefaultMaxLineSize,
	}
}

// Extractor converts session logs into transcripts
type Extractor struct {
	logger      zerolog.Logger
	maxLineSize int
}

// NewExtractor creates an extractor with the default configuration
func NewExtractor(logger zerolog.Logger) *Extractor {
	return NewExtractorWithConfig(logger, DefaultConfig())
}

// NewExtractorWithConfig creates an extractor with the given configuration
func NewExtractorWithConfig(logger zerolog.Logger, cfg Config) *Extractor {
	if cfg.MaxLineSize <= 0 {
		cfg.MaxLineSize = DefaultMaxLineSize
	}
	return &Extractor{
		logger:      logger,
		maxLineSize: cfg.MaxLineSize,
	}
}

// Stats summarizes a single conversion
type Stats struct {
	Lines   int
	Turns   int
	Skipped map[SkipReason]int
}

func newStats() *Stats {
	return &Stats{Skipped: make(map[SkipReason]int)}
}

func (s *Stats) skip(reason SkipReason) {
	s.Skipped[reason]++
}

// TotalSkipped returns the number of lines that produced no turn
func (s *Stats) TotalSkipped() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (s *Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("lines", s.Lines).Int("turns", s.Turns)

	reasons := make([]string, 0, len(s.Skipped))
	for reason := range s.Skipped {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)

	skipped := zerolog.Dict()
	for _, reason := range reasons {
		skipped.Int(reason, s.Skipped[SkipReason(reason)])
	}
	e.Dict("skipped", skipped)
}

// Result describes a completed file conversion
type Result struct {
	InputPath  string
	OutputPath string
	Stats      *Stats
	Duration   time.Duration
}

// Extract reads JSONL records from r and writes the transcript to w.
// Lines are processed one at a time; nothing but the current line is retained.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, w io.Writer) (*Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := tracing.LoggerFromContext(ctx, e.logger)

	stats := newStats()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, e.maxLineSize)), e.maxLineSize)
	scanner.Split(scanLines)

	wroteTurn := false
	lineNum := 0

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		lineNum++
		stats.Lines++

		raw := scanner.Bytes()
		if !utf8.Valid(raw) {
			return stats, fmt.Errorf("line %d: %w", lineNum, ErrInvalidUTF8)
		}

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			stats.skip(SkipBlank)
			continue
		}

		record := ParseRecord(lineNum, line)
		msg, reason := record.Message()
		if reason != SkipNone {
			stats.skip(reason)
			event := logger.Debug().
				Int("line", lineNum).
				Str("reason", string(reason))
			if err := record.Err(); err != nil {
				event = event.Err(err).Str("preview", preview(record.Raw))
			}
			event.Msg("Skipping line")
			continue
		}

		turn, _ := msg.Turn()
		if wroteTurn {
			if _, err := io.WriteString(w, Separator); err != nil {
				return stats, fmt.Errorf("failed to write separator: %w", err)
			}
		}
		if _, err := io.WriteString(w, turn.Render()); err != nil {
			return stats, fmt.Errorf("failed to write turn: %w", err)
		}
		wroteTurn = true
		stats.Turns++
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read input: %w", err)
	}

	return stats, nil
}

// ConvertFile writes the transcript for inputPath to OutputPath(inputPath).
// The output file is created (or truncated) before the input is opened, and
// a partially written output is left in place when the conversion fails.
func (e *Extractor) ConvertFile(ctx context.Context, inputPath string) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := tracing.LoggerFromContext(ctx, e.logger).With().Str("input", inputPath).Logger()
	start := time.Now()

	outputPath := OutputPath(inputPath)

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	in, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer in.Close()

	writer := bufio.NewWriter(out)
	stats, err := e.Extract(ctx, in, writer)
	if err != nil {
		// keep the turns written before the failure
		if flushErr := writer.Flush(); flushErr != nil {
			logger.Warn().Err(flushErr).Msg("Failed to flush partial transcript")
		}
		return nil, err
	}

	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write output file: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output file: %w", err)
	}

	result := &Result{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Stats:      stats,
		Duration:   time.Since(start),
	}

	logger.Info().
		Str("output", outputPath).
		Object("stats", stats).
		Dur("duration", result.Duration).
		Msg("Transcript written")

	return result, nil
}

// scanLines is a bufio.SplitFunc that ends a line at "\n", "\r\n" or a lone "\r"
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// need one more byte to tell "\r" from "\r\n"
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// preview shortens a raw line for diagnostics
func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLength {
		return s
	}
	return string(runes[:previewLength-3]) + "..."
}
