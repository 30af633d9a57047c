package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/clipseek/internal/ai"
	"github.com/xxxsen/clipseek/internal/model"
	appErr "github.com/xxxsen/clipseek/internal/pkg/errors"
)

// allowedLimits is the enumerated result-count selection.
var allowedLimits = map[int]struct{}{1: {}, 3: {}, 5: {}, 10: {}}

var citationPattern = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

// CredentialFactory builds a fresh embedder/generator pair for a
// caller-supplied key, so concurrent requests with different credentials
// never share client state.
type CredentialFactory func(apiKey string) (ai.IEmbedder, ai.IGenerator, error)

type SearchService struct {
	store               ClipStore
	embedder            ai.IEmbedder
	generator           ai.IGenerator
	override            CredentialFactory
	introSkipSeconds    int
	candidateMultiplier int
}

func NewSearchService(store ClipStore, embedder ai.IEmbedder, generator ai.IGenerator, override CredentialFactory, introSkipSeconds, candidateMultiplier int) *SearchService {
	if introSkipSeconds <= 0 {
		introSkipSeconds = 120
	}
	if candidateMultiplier <= 0 {
		candidateMultiplier = 2
	}
	return &SearchService{
		store:               store,
		embedder:            embedder,
		generator:           generator,
		override:            override,
		introSkipSeconds:    introSkipSeconds,
		candidateMultiplier: candidateMultiplier,
	}
}

// Search embeds the query, ranks the nearest clips, applies the
// intro-skip policy and composes a cited answer. apiKey, when non-empty,
// overrides the server credential for both the embedding and the
// generative call.
func (s *SearchService) Search(ctx context.Context, query string, limit int, apiKey string) (*model.SearchResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.Int("limit", limit))
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	if _, ok := allowedLimits[limit]; !ok {
		return nil, fmt.Errorf("%w: limit must be one of 1, 3, 5, 10", appErr.ErrInvalid)
	}

	total, err := s.store.CountClips(ctx)
	if err != nil {
		return nil, fmt.Errorf("count clips: %w", err)
	}
	if total == 0 {
		return nil, appErr.ErrEmptyLibrary
	}

	embedder, generator := s.embedder, s.generator
	if apiKey != "" && s.override != nil {
		embedder, generator, err = s.override(apiKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", appErr.ErrCredential, err)
		}
	}

	vec, err := embedder.Embed(ctx, query, "RETRIEVAL_QUERY")
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, appErr.ErrCredential
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Fetch extra candidates to leave room for the intro filter.
	candidates, err := s.store.Search(ctx, vec, limit*s.candidateMultiplier)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	// Intro-skip policy: clips starting inside the threshold are teaser
	// content. When the filter leaves fewer than limit candidates we
	// return the smaller set; filtered clips are never reintroduced.
	selected := make([]model.Clip, 0, limit)
	for _, cand := range candidates {
		if len(selected) >= limit {
			break
		}
		if cand.StartSeconds < s.introSkipSeconds {
			logger.Debug("intro clip filtered", zap.String("clip_id", cand.ID), zap.Int("start", cand.StartSeconds))
			continue
		}
		selected = append(selected, cand.Clip)
	}
	if len(selected) == 0 {
		return &model.SearchResult{Answer: "", Clips: []model.Clip{}}, nil
	}

	answer, err := s.compose(ctx, generator, query, selected)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, appErr.ErrCredential
		}
		// Clips are still useful without the overview; degrade rather
		// than fail the whole search.
		logger.Warn("answer composition failed", zap.Error(err))
		answer = ""
	}
	return &model.SearchResult{Answer: answer, Clips: selected}, nil
}

func (s *SearchService) compose(ctx context.Context, generator ai.IGenerator, query string, clips []model.Clip) (string, error) {
	if generator == nil {
		return "", ai.ErrUnavailable
	}
	var sb strings.Builder
	sb.WriteString("You answer questions about a video library using only the transcript clips below.\n")
	sb.WriteString("Every sentence that uses a clip must cite it by appending its marker exactly as written, e.g. [[")
	sb.WriteString(clips[0].ID)
	sb.WriteString("]]. Never cite a clip that is not listed.\n\nClips:\n")
	for _, clip := range clips {
		sb.WriteString(fmt.Sprintf("[[%s]] %s (%s, %s-%s): %s\n",
			clip.ID, clip.Title, clip.ChannelName,
			formatTimestamp(clip.StartSeconds), formatTimestamp(clip.EndSeconds),
			clip.Content))
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)
	answer, err := generator.Generate(ctx, sb.String())
	if err != nil {
		return "", err
	}
	return sanitizeCitations(answer, clips), nil
}

// sanitizeCitations drops any marker that does not resolve to a clip in
// the selected set, so a hallucinated citation never reaches the caller.
func sanitizeCitations(answer string, clips []model.Clip) string {
	valid := make(map[string]struct{}, len(clips))
	for _, clip := range clips {
		valid[clip.ID] = struct{}{}
	}
	return citationPattern.ReplaceAllStringFunc(answer, func(marker string) string {
		id := citationPattern.FindStringSubmatch(marker)[1]
		if _, ok := valid[id]; ok {
			return marker
		}
		return ""
	})
}

func formatTimestamp(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
