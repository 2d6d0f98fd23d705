package mathd

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"runtime"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/stepwisehq/stepwise/pkg/logger"
)

const (
	kbCollection    = "math-problems"
	defaultMinScore = 0.2
	embeddingDims   = 128
)

// Routes the solve stream reports.
const (
	RouteKnowledgeBase = "knowledge_base"
	RouteWebSearch     = "web_search"
)

// Problem is one worked example seeded into the knowledge base.
type Problem struct {
	ID          string
	Question    string
	Steps       []Step
	FinalAnswer string
	Topic       string
}

func (p Problem) worked() *Worked {
	steps := make([]Step, len(p.Steps))
	copy(steps, p.Steps)
	return &Worked{Steps: steps, FinalAnswer: p.FinalAnswer}
}

// KnowledgeBase routes questions against a chromem-go collection of worked
// problems. A hit above the similarity floor routes to knowledge_base and
// makes the matched problem available as fallback content.
type KnowledgeBase struct {
	db         *chromem.DB
	collection *chromem.Collection
	minScore   float32
	problems   map[string]Problem
	log        *logger.Logger
}

// NewKnowledgeBase opens the collection, persisting it under persistDir when
// one is given and keeping it in memory otherwise.
func NewKnowledgeBase(persistDir string, minScore float64) (*KnowledgeBase, error) {
	var db *chromem.DB
	var err error
	if persistDir != "" {
		db, err = chromem.NewPersistentDB(persistDir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open knowledge base: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(kbCollection, map[string]string{"domain": "mathematics"}, trigramEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base collection: %w", err)
	}

	if minScore <= 0 {
		minScore = defaultMinScore
	}

	return &KnowledgeBase{
		db:         db,
		collection: collection,
		minScore:   float32(minScore),
		problems:   make(map[string]Problem),
		log:        logger.WithComponent("knowledge_base"),
	}, nil
}

// Seed registers worked problems. Documents are only embedded into an empty
// collection, so reopening a persisted knowledge base does not duplicate
// them; the in-memory problem lookup is refreshed either way.
func (kb *KnowledgeBase) Seed(ctx context.Context, problems []Problem) error {
	if len(problems) == 0 {
		return nil
	}

	for _, p := range problems {
		kb.problems[p.ID] = p
	}
	if kb.collection.Count() > 0 {
		return nil
	}

	docs := make([]chromem.Document, len(problems))
	for i, p := range problems {
		docs[i] = chromem.Document{
			ID:      p.ID,
			Content: p.Question,
			Metadata: map[string]string{
				"topic":        p.Topic,
				"final_answer": p.FinalAnswer,
			},
		}
	}
	if err := kb.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to seed knowledge base: %w", err)
	}

	kb.log.Info("Knowledge base seeded", "problems", len(problems))
	return nil
}

// Count reports the number of embedded problems.
func (kb *KnowledgeBase) Count() int {
	return kb.collection.Count()
}

// Route picks knowledge_base when the best match clears the similarity
// floor and web_search otherwise. The returned problem is non-nil only for
// knowledge_base hits.
func (kb *KnowledgeBase) Route(ctx context.Context, question string) (route string, confidence float64, hit *Problem) {
	count := kb.collection.Count()
	if count == 0 {
		return RouteWebSearch, 0, nil
	}

	k := 3
	if count < k {
		k = count
	}
	results, err := kb.collection.Query(ctx, question, k, nil, nil)
	if err != nil {
		kb.log.Warn("Knowledge base query failed", "error", err)
		return RouteWebSearch, 0, nil
	}
	if len(results) == 0 {
		return RouteWebSearch, 0, nil
	}

	top := results[0]
	if top.Similarity > kb.minScore {
		if p, ok := kb.problems[top.ID]; ok {
			return RouteKnowledgeBase, float64(top.Similarity), &p
		}
	}
	return RouteWebSearch, float64(top.Similarity), nil
}

// trigramEmbedding is a deterministic character-trigram embedding. Questions
// sharing surface structure land near each other, which is all the routing
// floor needs; no model call is involved.
func trigramEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)

	runes := []rune(strings.ToLower(text))
	for i := 0; i+3 <= len(runes); i++ {
		h := fnv.New32a()
		h.Write([]byte(string(runes[i : i+3])))
		vec[h.Sum32()%embeddingDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// seedProblems is the dev server's worked-problem library.
func seedProblems() []Problem {
	return []Problem{
		{
			ID:       "linear-2x-plus-5",
			Question: "Solve 2x + 5 = 11",
			Steps: []Step{
				{Step: 1, Text: "Start with the equation 2x + 5 = 11.", Type: "setup"},
				{Step: 2, Text: "Subtract 5 from both sides: 2x = 6.", Type: "algebra"},
				{Step: 3, Text: "Divide both sides by 2: x = 3.", Type: "algebra"},
				{Step: 4, Text: "The solution is x = 3.", Type: "result"},
			},
			FinalAnswer: "x = 3",
			Topic:       "algebra",
		},
		{
			ID:       "linear-3x-minus-4",
			Question: "Solve 3x - 4 = 8",
			Steps: []Step{
				{Step: 1, Text: "Start with the equation 3x - 4 = 8.", Type: "setup"},
				{Step: 2, Text: "Add 4 to both sides: 3x = 12.", Type: "algebra"},
				{Step: 3, Text: "Divide both sides by 3: x = 4.", Type: "algebra"},
				{Step: 4, Text: "The solution is x = 4.", Type: "result"},
			},
			FinalAnswer: "x = 4",
			Topic:       "algebra",
		},
		{
			ID:       "order-of-operations",
			Question: "What is 2 + 3 * 4?",
			Steps: []Step{
				{Step: 1, Text: "Evaluate 2 + 3 * 4 using the standard order of operations.", Type: "setup"},
				{Step: 2, Text: "Multiplication runs first: 3 * 4 = 12.", Type: "arithmetic"},
				{Step: 3, Text: "Then add: 2 + 12 = 14.", Type: "result"},
			},
			FinalAnswer: "14",
			Topic:       "arithmetic",
		},
		{
			ID:       "fraction-sum",
			Question: "What is 1/2 + 1/4?",
			Steps: []Step{
				{Step: 1, Text: "Rewrite both fractions over a common denominator of 4.", Type: "setup"},
				{Step: 2, Text: "1/2 becomes 2/4, so the sum is 2/4 + 1/4.", Type: "arithmetic"},
				{Step: 3, Text: "Add the numerators: 3/4.", Type: "result"},
			},
			FinalAnswer: "3/4",
			Topic:       "fractions",
		},
		{
			ID:       "pythagorean-theorem",
			Question: "What is the Pythagorean theorem?",
			Steps: []Step{
				{Step: 1, Text: "In a right triangle the hypotenuse is the side opposite the right angle.", Type: "explanation"},
				{Step: 2, Text: "The squares of the two legs sum to the square of the hypotenuse.", Type: "explanation"},
				{Step: 3, Text: "Written as a formula: a^2 + b^2 = c^2.", Type: "result"},
			},
			FinalAnswer: "a^2 + b^2 = c^2",
			Topic:       "geometry",
		},
		{
			ID:       "quadratic-formula",
			Question: "What is the quadratic formula?",
			Steps: []Step{
				{Step: 1, Text: "A quadratic equation has the form ax^2 + bx + c = 0 with a nonzero a.", Type: "explanation"},
				{Step: 2, Text: "Completing the square on that form isolates x.", Type: "explanation"},
				{Step: 3, Text: "The roots are x = (-b +/- sqrt(b^2 - 4ac)) / (2a).", Type: "result"},
			},
			FinalAnswer: "x = (-b +/- sqrt(b^2 - 4ac)) / (2a)",
			Topic:       "algebra",
		},
	}
}
