// Package gemini implements the intent classifier on Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/intent"
	"github.com/ArionMiles/chatledger/pkg/locale"
)

// DefaultModelName is the model used when Config.Model is empty.
const DefaultModelName = "gemini-2.5-flash-lite"

// Config holds configuration for the Gemini classifier.
type Config struct {
	APIKey string
	Model  string
}

// generator is the part of genai.Models the classifier calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Classifier asks Gemini for a JSON intent and decodes it strictly.
type Classifier struct {
	models  generator
	model   string
	locale  *locale.Locale
	decoder intent.Decoder
	logger  *slog.Logger
}

// New creates a Gemini classifier.
func New(ctx context.Context, cfg Config, loc *locale.Locale, logger *slog.Logger) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return newClassifier(client.Models, cfg.Model, loc, logger), nil
}

func newClassifier(models generator, model string, loc *locale.Locale, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = DefaultModelName
	}
	return &Classifier{
		models:  models,
		model:   model,
		locale:  loc,
		decoder: intent.Decoder{Locale: loc},
		logger:  logger,
	}
}

// Classify implements api.Classifier. Failures are not retried.
func (c *Classifier) Classify(ctx context.Context, message string, today time.Time) (api.Intent, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt(c.locale, today), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(c.locale),
		Temperature:       genai.Ptr[float32](0),
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(message), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: generating content: %w", api.ErrClassifier, err)
	}

	raw := resp.Text()
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty response from model", api.ErrClassifier)
	}

	in, err := c.decoder.Decode([]byte(raw), today)
	if err != nil {
		c.logger.Warn("classifier returned unusable output", "error", err, "raw", raw)
		return nil, err
	}

	c.logger.Debug("classified message", "intent", in.Kind())
	return in, nil
}

// SystemPrompt builds the instruction sent with every message.
func SystemPrompt(loc *locale.Locale, today time.Time) string {
	label := loc.CategoryLabel
	var b strings.Builder

	fmt.Fprintf(&b, "You are a personal finance assistant in a chat app. Write every message in %s.\n", loc.Language)
	b.WriteString("Reply with VALID JSON only. No Markdown, no backticks, no extra text.\n\n")

	b.WriteString("Format:\n")
	b.WriteString("{\n")
	b.WriteString(` "intent": "add" | "edit" | "delete" | "chat",` + "\n")
	b.WriteString(` "message": string | null,` + "\n")
	b.WriteString(` "id": string[] | null,` + "\n")
	b.WriteString(` "data_transaksi": [{` + "\n")
	b.WriteString(`   "tanggal": "YYYY-MM-DD" | null,` + "\n")
	b.WriteString(`   "transaksi": string | null,` + "\n")
	b.WriteString(`   "nominal": number | null,` + "\n")
	b.WriteString(`   "cashflow": "Income" | "Spending" | null,` + "\n")
	fmt.Fprintf(&b, "   \"kategori\": %q | null\n", strings.Join(loc.CategoryLabels(), " | "))
	b.WriteString(" }] | null\n")
	b.WriteString("}\n\n")

	b.WriteString("Intent rules:\n")
	b.WriteString("- add: fill data_transaksi and capture the item or transaction name IN FULL, exactly as the user described it; id=null, message=null\n")
	b.WriteString("- edit: fill id (UPPERCASE) and data_transaksi with only the fields to change, the rest null; message=null\n")
	b.WriteString("- delete: fill id (UPPERCASE); data_transaksi=null, message=null\n")
	b.WriteString("- chat: fill message only\n\n")

	b.WriteString("Help mode:\n")
	b.WriteString("If the user asks for help or how to use the assistant, set intent=\"chat\" and write a friendly guide with bullet points in message.\n")
	b.WriteString("It MUST include:\n\n")
	fmt.Fprintf(&b, "- %s\n- %s\n- %s\n\n", loc.Texts.HelpAdd, loc.Texts.HelpEdit, loc.Texts.HelpDelete)

	b.WriteString("Category rules:\n")
	fmt.Fprintf(&b, "- %q: raw groceries and staples (eggs, rice, vegetables), daily necessities and personal goods.\n", label(api.CategoryShopping))
	fmt.Fprintf(&b, "- %q: ONLY ready-to-eat food and drinks or eating out.\n", label(api.CategoryFoodDrink))
	fmt.Fprintf(&b, "- %q: fuel, parking, ride hailing and similar.\n", label(api.CategoryTransport))
	fmt.Fprintf(&b, "- %q: phone credit, data plans and internet bills.\n", label(api.CategoryMobileInternet))
	fmt.Fprintf(&b, "- %q: recurring bills such as electricity and water.\n", label(api.CategoryBills))
	fmt.Fprintf(&b, "- %q: anything else, such as water refills or books.\n", label(api.CategoryOther))
	fmt.Fprintf(&b, "- When cashflow is \"Income\", the category is %q.\n\n", label(api.CategoryIncome))

	b.WriteString("Parsing:\n")
	b.WriteString("- Expand amount shorthand into plain numbers: 15rb=15000, 15k=15000, 2jt=2000000\n")
	b.WriteString("- IDs MUST be UPPERCASE\n")
	b.WriteString("- No date given: use today\n")
	b.WriteString("- Income: salary, receiving money\n")
	b.WriteString("- Spending: buying, paying, bills\n\n")

	fmt.Fprintf(&b, "Today: %s", today.Format(api.DateLayout))
	return b.String()
}

func responseSchema(loc *locale.Locale) *genai.Schema {
	nullable := genai.Ptr(true)
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString, Nullable: nullable} }

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"intent":  {Type: genai.TypeString, Enum: []string{api.KindAdd, api.KindEdit, api.KindDelete, api.KindChat}},
			"message": str(),
			"id":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Nullable: nullable},
			"data_transaksi": {
				Type:     genai.TypeArray,
				Nullable: nullable,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"tanggal":   str(),
						"transaksi": str(),
						"nominal":   {Type: genai.TypeNumber, Nullable: nullable},
						"cashflow":  {Type: genai.TypeString, Enum: []string{string(api.FlowIncome), string(api.FlowSpending)}, Nullable: nullable},
						"kategori":  {Type: genai.TypeString, Enum: loc.CategoryLabels(), Nullable: nullable},
					},
					Required:         []string{"tanggal", "transaksi", "nominal", "cashflow", "kategori"},
					PropertyOrdering: []string{"tanggal", "transaksi", "nominal", "cashflow", "kategori"},
				},
			},
		},
		Required:         []string{"intent", "message", "id", "data_transaksi"},
		PropertyOrdering: []string{"intent", "message", "id", "data_transaksi"},
	}
}
