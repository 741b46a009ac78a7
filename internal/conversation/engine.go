package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/consignedbydesign/delivery-platform/internal/catalog"
	"github.com/consignedbydesign/delivery-platform/internal/messaging"
	observemetrics "github.com/consignedbydesign/delivery-platform/internal/observability/metrics"
	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

// CatalogSearcher reconciles a customer's free-text item description against
// recent order history.
type CatalogSearcher interface {
	SearchOrders(ctx context.Context, query string) (*catalog.Match, error)
}

// Materializer turns a completed conversation into a persisted entity. The DB
// is the transaction the turn runs in, so the created row commits together
// with the stage transition.
type Materializer interface {
	CreateDeliveryTask(ctx context.Context, q DB, conv *Conversation) (uuid.UUID, error)
	CreatePickupRequest(ctx context.Context, q DB, conv *Conversation) (uuid.UUID, error)
}

// EngineConfig holds the per-deployment knobs for the guided flow.
type EngineConfig struct {
	SchedulerPhone string
	DefaultState   string
	LookupTimeout  time.Duration
}

// Engine is the per-message state machine: given the current stage and the
// inbound text/media, it validates input, mutates the conversation, and
// returns the next prompt. Validation failures reprompt in place; the only
// hard errors it returns are persistence failures from the materializer.
type Engine struct {
	catalog      CatalogSearcher
	materializer Materializer
	cfg          EngineConfig
	metrics      *observemetrics.ConversationMetrics
	logger       *logging.Logger
}

// NewEngine creates a conversation engine.
func NewEngine(searcher CatalogSearcher, materializer Materializer, cfg EngineConfig, m *observemetrics.ConversationMetrics, logger *logging.Logger) *Engine {
	if materializer == nil {
		panic("conversation: materializer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DefaultState == "" {
		cfg.DefaultState = "IN"
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 5 * time.Second
	}
	return &Engine{
		catalog:      searcher,
		materializer: materializer,
		cfg:          cfg,
		metrics:      m,
		logger:       logger,
	}
}

var cancelKeywords = map[string]struct{}{
	"CANCEL": {},
	"STOP":   {},
	"QUIT":   {},
}

var yesAnswers = map[string]struct{}{
	"YES": {}, "Y": {}, "YEP": {}, "YUP": {}, "YEAH": {},
}

var noAnswers = map[string]struct{}{
	"NO": {}, "N": {}, "NOPE": {}, "NAH": {},
}

// Process handles one inbound message against the conversation's current
// stage. It mutates conv; the caller persists it and only then sends the
// returned reply.
func (e *Engine) Process(ctx context.Context, q DB, conv *Conversation, body string, media []string) (string, error) {
	now := time.Now().UTC()
	conv.LastMessageAt = &now
	conv.PhotoURLs = append(conv.PhotoURLs, media...)

	text := strings.TrimSpace(body)
	upper := strings.ToUpper(text)

	if conv.Stage.Terminal() {
		// The store never hands out terminal conversations; answer with the
		// menu rather than mutating one.
		return promptWelcome, nil
	}

	if _, ok := cancelKeywords[upper]; ok {
		e.transition(conv, StageCancelled)
		return promptCancelled, nil
	}

	switch conv.Stage {
	case StageStarted:
		return e.handleStarted(conv, upper), nil
	case StageAwaitingName:
		return e.handleName(conv, text), nil
	case StageAwaitingPhone:
		return e.handlePhone(conv, text, upper), nil
	case StageAwaitingAddress:
		return e.handleAddress(conv, text), nil
	case StageAwaitingCityZip:
		return e.handleCityZip(conv, text), nil
	case StageAwaitingItems:
		return e.handleItems(ctx, conv, text), nil
	case StageAwaitingNotes:
		return e.handleNotes(ctx, q, conv, upper)
	default:
		// Corrupted stage value read from storage; self-heal to the menu.
		e.logger.Warn("resetting conversation with unknown stage",
			"conversation_id", conv.ID, "stage", string(conv.Stage))
		e.transition(conv, StageStarted)
		return promptWelcome, nil
	}
}

func (e *Engine) handleStarted(conv *Conversation, upper string) string {
	switch upper {
	case "DELIVERY", "DELIVER":
		conv.Kind = KindDelivery
	case "PICKUP", "PICK UP", "PICK-UP":
		conv.Kind = KindPickup
	default:
		return promptWelcome
	}
	e.transition(conv, StageAwaitingName)
	return promptAskName
}

func (e *Engine) handleName(conv *Conversation, text string) string {
	if len([]rune(text)) < 2 {
		return repromptName
	}
	conv.CustomerName = titleCase(text)
	e.transition(conv, StageAwaitingPhone)
	first := conv.CustomerName
	if idx := strings.IndexByte(first, ' '); idx > 0 {
		first = first[:idx]
	}
	return fmt.Sprintf(promptAskPhone, first)
}

func (e *Engine) handlePhone(conv *Conversation, text, upper string) string {
	if upper == "SAME" {
		conv.CallbackPhone = conv.Phone
	} else {
		digits, ok := messaging.ExtractCallbackDigits(text)
		if !ok {
			return repromptPhone
		}
		conv.CallbackPhone = digits
	}
	e.transition(conv, StageAwaitingAddress)
	return promptAskAddress
}

func (e *Engine) handleAddress(conv *Conversation, text string) string {
	if len([]rune(text)) < 5 {
		return repromptAddress
	}
	conv.AddressLine1 = text
	e.transition(conv, StageAwaitingCityZip)
	return promptAskCityZip
}

func (e *Engine) handleCityZip(conv *Conversation, text string) string {
	city, zip, ok := parseCityZip(text)
	if !ok {
		return repromptCityZip
	}
	conv.City = titleCase(city)
	conv.Zip = zip
	if conv.State == "" {
		conv.State = e.cfg.DefaultState
	}

	if conv.Kind == KindDelivery {
		e.transition(conv, StageAwaitingItems)
		return promptAskItem
	}
	// Pickups skip item capture entirely.
	e.transition(conv, StageAwaitingNotes)
	return promptAskStairs
}

func (e *Engine) handleItems(ctx context.Context, conv *Conversation, text string) string {
	if len([]rune(text)) < 2 {
		return repromptItem
	}

	var match *catalog.Match
	if e.catalog != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, e.cfg.LookupTimeout)
		defer cancel()
		found, err := e.catalog.SearchOrders(lookupCtx, text)
		if err != nil {
			// Catalog trouble never blocks the flow.
			e.logger.Warn("catalog lookup failed, continuing as no-match",
				"conversation_id", conv.ID, "error", err)
			e.metrics.ObserveCatalogLookup("error")
		} else if found != nil {
			e.metrics.ObserveCatalogLookup("match")
			match = found
		} else {
			e.metrics.ObserveCatalogLookup("miss")
		}
	}

	if match != nil {
		conv.ItemDescription = fmt.Sprintf("%s | SKU: %s | Order #%s", match.Title, match.SKU, match.OrderNumber)
		e.transition(conv, StageAwaitingNotes)
		return fmt.Sprintf(promptItemFound, match.Title, match.SKU, match.OrderNumber)
	}

	conv.ItemDescription = fmt.Sprintf("Customer described: %s (not found in Shopify)", text)
	e.transition(conv, StageAwaitingNotes)
	return promptItemNotFound
}

func (e *Engine) handleNotes(ctx context.Context, q DB, conv *Conversation, upper string) (string, error) {
	if _, ok := yesAnswers[upper]; ok {
		conv.Notes = "Has stairs: YES"
	} else if _, ok := noAnswers[upper]; ok {
		conv.Notes = "Has stairs: NO"
	} else {
		return repromptStairs, nil
	}

	if conv.Kind == KindPickup {
		id, err := e.materializer.CreatePickupRequest(ctx, q, conv)
		if err != nil {
			return "", fmt.Errorf("conversation: create pickup request: %w", err)
		}
		conv.CreatedPickupID = &id
		e.transition(conv, StageCompleted)
		return fmt.Sprintf(promptCompletedPickup, e.schedulerDisplay()), nil
	}

	id, err := e.materializer.CreateDeliveryTask(ctx, q, conv)
	if err != nil {
		return "", fmt.Errorf("conversation: create delivery task: %w", err)
	}
	conv.CreatedTaskID = &id
	e.transition(conv, StageCompleted)
	return fmt.Sprintf(promptCompletedDelivery, e.schedulerDisplay()), nil
}

func (e *Engine) transition(conv *Conversation, to Stage) {
	from := conv.Stage
	conv.Stage = to
	e.metrics.ObserveStageTransition(string(from), string(to))
}

func (e *Engine) schedulerDisplay() string {
	if e.cfg.SchedulerPhone == "" {
		return "317-661-1188"
	}
	return messaging.FormatDisplay(e.cfg.SchedulerPhone)
}

var zipTailRe = regexp.MustCompile(`(\d{5})(?:-\d{4})?$`)

// parseCityZip recovers a city and 5-digit ZIP from free text. A trailing ZIP
// (with optional +4 suffix) is preferred; otherwise the text is split on the
// last comma and up to five digits are pulled from the remainder.
func parseCityZip(text string) (city, zip string, ok bool) {
	text = strings.TrimSpace(text)
	if loc := zipTailRe.FindStringSubmatchIndex(text); loc != nil {
		zip = text[loc[2]:loc[3]]
		city = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text[:loc[0]]), ","))
		return city, zip, true
	}

	parts := strings.Split(text, ",")
	if len(parts) < 2 {
		return "", "", false
	}
	city = strings.TrimSpace(parts[0])
	var digits strings.Builder
	for _, r := range parts[len(parts)-1] {
		if r >= '0' && r <= '9' && digits.Len() < 5 {
			digits.WriteRune(r)
		}
	}
	zip = digits.String()
	if len(zip) != 5 {
		return "", "", false
	}
	return city, zip, true
}

// titleCase capitalizes each whitespace-delimited word.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
