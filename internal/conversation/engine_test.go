package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consignedbydesign/delivery-platform/internal/catalog"
)

type fakeSearcher struct {
	match *catalog.Match
	err   error
	query string
}

func (f *fakeSearcher) SearchOrders(_ context.Context, query string) (*catalog.Match, error) {
	f.query = query
	return f.match, f.err
}

type fakeMaterializer struct {
	deliveries int
	pickups    int
	lastConv   *Conversation
	taskID     uuid.UUID
	pickupID   uuid.UUID
	err        error
}

func (f *fakeMaterializer) CreateDeliveryTask(_ context.Context, _ DB, conv *Conversation) (uuid.UUID, error) {
	f.deliveries++
	f.lastConv = conv
	return f.taskID, f.err
}

func (f *fakeMaterializer) CreatePickupRequest(_ context.Context, _ DB, conv *Conversation) (uuid.UUID, error) {
	f.pickups++
	f.lastConv = conv
	return f.pickupID, f.err
}

func newTestEngine(searcher CatalogSearcher, mat Materializer) *Engine {
	return NewEngine(searcher, mat, EngineConfig{
		SchedulerPhone: "+13176611188",
		DefaultState:   "IN",
		LookupTimeout:  time.Second,
	}, nil, nil)
}

func newConversation(stage Stage, kind Kind) *Conversation {
	return &Conversation{
		ID:        uuid.New(),
		Phone:     "3175550147",
		Stage:     stage,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}

func TestEngineFullDeliveryFlow(t *testing.T) {
	searcher := &fakeSearcher{match: &catalog.Match{
		SKU:         "3630-68",
		Title:       "Oak Dresser",
		OrderNumber: "1042",
	}}
	mat := &fakeMaterializer{taskID: uuid.New()}
	engine := newTestEngine(searcher, mat)
	ctx := context.Background()

	conv := newConversation(StageStarted, KindUnset)

	reply, err := engine.Process(ctx, nil, conv, "DELIVERY", nil)
	require.NoError(t, err)
	assert.Equal(t, promptAskName, reply)
	assert.Equal(t, StageAwaitingName, conv.Stage)
	assert.Equal(t, KindDelivery, conv.Kind)

	reply, err = engine.Process(ctx, nil, conv, "jane smith", nil)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(promptAskPhone, "Jane"), reply)
	assert.Equal(t, "Jane Smith", conv.CustomerName)
	assert.Equal(t, StageAwaitingPhone, conv.Stage)

	reply, err = engine.Process(ctx, nil, conv, "SAME", nil)
	require.NoError(t, err)
	assert.Equal(t, promptAskAddress, reply)
	assert.Equal(t, conv.Phone, conv.CallbackPhone)

	reply, err = engine.Process(ctx, nil, conv, "123 Main Street", nil)
	require.NoError(t, err)
	assert.Equal(t, promptAskCityZip, reply)
	assert.Equal(t, "123 Main Street", conv.AddressLine1)

	reply, err = engine.Process(ctx, nil, conv, "Indianapolis, 46220", nil)
	require.NoError(t, err)
	assert.Equal(t, promptAskItem, reply)
	assert.Equal(t, "Indianapolis", conv.City)
	assert.Equal(t, "46220", conv.Zip)
	assert.Equal(t, "IN", conv.State)
	assert.Equal(t, StageAwaitingItems, conv.Stage)

	reply, err = engine.Process(ctx, nil, conv, "oak dresser", nil)
	require.NoError(t, err)
	assert.Equal(t, "oak dresser", searcher.query)
	assert.Equal(t, fmt.Sprintf(promptItemFound, "Oak Dresser", "3630-68", "1042"), reply)
	assert.Equal(t, "Oak Dresser | SKU: 3630-68 | Order #1042", conv.ItemDescription)
	assert.Equal(t, StageAwaitingNotes, conv.Stage)

	reply, err = engine.Process(ctx, nil, conv, "yes", nil)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(promptCompletedDelivery, "(317) 661-1188"), reply)
	assert.Equal(t, StageCompleted, conv.Stage)
	assert.Equal(t, "Has stairs: YES", conv.Notes)
	assert.Equal(t, 1, mat.deliveries)
	require.NotNil(t, conv.CreatedTaskID)
	assert.Equal(t, mat.taskID, *conv.CreatedTaskID)
}

func TestEngineFullPickupFlow(t *testing.T) {
	mat := &fakeMaterializer{pickupID: uuid.New()}
	engine := newTestEngine(nil, mat)
	ctx := context.Background()

	conv := newConversation(StageStarted, KindUnset)

	reply, err := engine.Process(ctx, nil, conv, "pickup", nil)
	require.NoError(t, err)
	assert.Equal(t, promptAskName, reply)
	assert.Equal(t, KindPickup, conv.Kind)

	_, err = engine.Process(ctx, nil, conv, "Bob Jones", nil)
	require.NoError(t, err)

	_, err = engine.Process(ctx, nil, conv, "317-555-0147", nil)
	require.NoError(t, err)
	assert.Equal(t, "3175550147", conv.CallbackPhone)

	_, err = engine.Process(ctx, nil, conv, "456 Elm Ave", []string{"https://cdn.example.com/p1.jpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/p1.jpg"}, conv.PhotoURLs)

	// Pickups go straight to the stairs question after city/zip.
	reply, err = engine.Process(ctx, nil, conv, "Carmel 46032", nil)
	require.NoError(t, err)
	assert.Equal(t, promptAskStairs, reply)
	assert.Equal(t, StageAwaitingNotes, conv.Stage)
	assert.Equal(t, "Carmel", conv.City)
	assert.Equal(t, "46032", conv.Zip)

	reply, err = engine.Process(ctx, nil, conv, "NO", nil)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(promptCompletedPickup, "(317) 661-1188"), reply)
	assert.Equal(t, StageCompleted, conv.Stage)
	assert.Equal(t, "Has stairs: NO", conv.Notes)
	assert.Equal(t, 1, mat.pickups)
	assert.Equal(t, 0, mat.deliveries)
	require.NotNil(t, conv.CreatedPickupID)
}

func TestEngineCancelFromAnyStage(t *testing.T) {
	stages := []Stage{
		StageStarted, StageAwaitingName, StageAwaitingPhone,
		StageAwaitingAddress, StageAwaitingCityZip, StageAwaitingItems, StageAwaitingNotes,
	}
	for _, stage := range stages {
		for _, keyword := range []string{"CANCEL", "stop", "Quit"} {
			t.Run(string(stage)+"_"+keyword, func(t *testing.T) {
				mat := &fakeMaterializer{}
				engine := newTestEngine(nil, mat)
				conv := newConversation(stage, KindDelivery)

				reply, err := engine.Process(context.Background(), nil, conv, keyword, nil)
				require.NoError(t, err)
				assert.Equal(t, promptCancelled, reply)
				assert.Equal(t, StageCancelled, conv.Stage)
				assert.Equal(t, 0, mat.deliveries)
				assert.Equal(t, 0, mat.pickups)
			})
		}
	}
}

func TestEngineReprompts(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		kind  Kind
		input string
		want  string
	}{
		{"unrecognized menu choice", StageStarted, KindUnset, "hello?", promptWelcome},
		{"name too short", StageAwaitingName, KindDelivery, "J", repromptName},
		{"phone too few digits", StageAwaitingPhone, KindDelivery, "555-0147", repromptPhone},
		{"address too short", StageAwaitingAddress, KindDelivery, "123", repromptAddress},
		{"city without zip", StageAwaitingCityZip, KindDelivery, "Indianapolis", repromptCityZip},
		{"zip too short", StageAwaitingCityZip, KindDelivery, "Indianapolis, 4622", repromptCityZip},
		{"item too short", StageAwaitingItems, KindDelivery, "a", repromptItem},
		{"stairs gibberish", StageAwaitingNotes, KindDelivery, "maybe", repromptStairs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(nil, &fakeMaterializer{})
			conv := newConversation(tt.stage, tt.kind)

			reply, err := engine.Process(context.Background(), nil, conv, tt.input, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply)
			assert.Equal(t, tt.stage, conv.Stage, "reprompt must not advance the stage")
		})
	}
}

func TestEnginePhoneFormats(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"3175550147", "3175550147"},
		{"(317) 555-0147", "3175550147"},
		{"1-317-555-0147", "3175550147"},
		{"+1 317 555 0147", "3175550147"},
		// Over-long digit runs keep the last ten.
		{"my cell is 1 (317) 555-0147", "3175550147"},
		{"23175550147", "3175550147"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			engine := newTestEngine(nil, &fakeMaterializer{})
			conv := newConversation(StageAwaitingPhone, KindDelivery)

			reply, err := engine.Process(context.Background(), nil, conv, tt.input, nil)
			require.NoError(t, err)
			assert.Equal(t, promptAskAddress, reply)
			assert.Equal(t, tt.want, conv.CallbackPhone)
		})
	}
}

func TestEngineItemNoMatch(t *testing.T) {
	searcher := &fakeSearcher{}
	engine := newTestEngine(searcher, &fakeMaterializer{})
	conv := newConversation(StageAwaitingItems, KindDelivery)

	reply, err := engine.Process(context.Background(), nil, conv, "purple velvet chaise", nil)
	require.NoError(t, err)
	assert.Equal(t, promptItemNotFound, reply)
	assert.Equal(t, "Customer described: purple velvet chaise (not found in Shopify)", conv.ItemDescription)
	assert.Equal(t, StageAwaitingNotes, conv.Stage)
}

func TestEngineItemLookupErrorDegrades(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("shopify 500")}
	engine := newTestEngine(searcher, &fakeMaterializer{})
	conv := newConversation(StageAwaitingItems, KindDelivery)

	reply, err := engine.Process(context.Background(), nil, conv, "oak dresser", nil)
	require.NoError(t, err)
	assert.Equal(t, promptItemNotFound, reply)
	assert.Equal(t, StageAwaitingNotes, conv.Stage)
}

func TestEngineItemCatalogUnconfigured(t *testing.T) {
	engine := newTestEngine(nil, &fakeMaterializer{})
	conv := newConversation(StageAwaitingItems, KindDelivery)

	reply, err := engine.Process(context.Background(), nil, conv, "oak dresser", nil)
	require.NoError(t, err)
	assert.Equal(t, promptItemNotFound, reply)
}

func TestEngineStairsAnswers(t *testing.T) {
	tests := []struct {
		input string
		notes string
	}{
		{"YES", "Has stairs: YES"},
		{"y", "Has stairs: YES"},
		{"Yep", "Has stairs: YES"},
		{"yup", "Has stairs: YES"},
		{"yeah", "Has stairs: YES"},
		{"NO", "Has stairs: NO"},
		{"n", "Has stairs: NO"},
		{"nope", "Has stairs: NO"},
		{"nah", "Has stairs: NO"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mat := &fakeMaterializer{taskID: uuid.New()}
			engine := newTestEngine(nil, mat)
			conv := newConversation(StageAwaitingNotes, KindDelivery)

			_, err := engine.Process(context.Background(), nil, conv, tt.input, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.notes, conv.Notes)
			assert.Equal(t, StageCompleted, conv.Stage)
		})
	}
}

func TestEngineMaterializerFailureKeepsStage(t *testing.T) {
	mat := &fakeMaterializer{err: errors.New("insert failed")}
	engine := newTestEngine(nil, mat)
	conv := newConversation(StageAwaitingNotes, KindDelivery)

	_, err := engine.Process(context.Background(), nil, conv, "yes", nil)
	require.Error(t, err)
	assert.NotEqual(t, StageCompleted, conv.Stage)
}

func TestEngineUnknownStageSelfHeals(t *testing.T) {
	engine := newTestEngine(nil, &fakeMaterializer{})
	conv := newConversation(Stage("corrupted"), KindUnset)

	reply, err := engine.Process(context.Background(), nil, conv, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, promptWelcome, reply)
	assert.Equal(t, StageStarted, conv.Stage)
}

func TestEngineTerminalStageAnswersMenu(t *testing.T) {
	engine := newTestEngine(nil, &fakeMaterializer{})
	conv := newConversation(StageCompleted, KindDelivery)

	reply, err := engine.Process(context.Background(), nil, conv, "thanks!", nil)
	require.NoError(t, err)
	assert.Equal(t, promptWelcome, reply)
	assert.Equal(t, StageCompleted, conv.Stage)
}

func TestParseCityZip(t *testing.T) {
	tests := []struct {
		input    string
		wantCity string
		wantZip  string
		wantOK   bool
	}{
		{"Indianapolis, 46220", "Indianapolis", "46220", true},
		{"Indianapolis 46220", "Indianapolis", "46220", true},
		{"Carmel, IN 46032", "Carmel, IN", "46032", true},
		{"Fishers, 46038-1234", "Fishers", "46038", true},
		{"Indianapolis", "", "", false},
		{"Indianapolis, 4622", "", "", false},
		{"46220", "", "46220", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			city, zip, ok := parseCityZip(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantCity, city)
				assert.Equal(t, tt.wantZip, zip)
			}
		})
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"jane smith", "Jane Smith"},
		{"JANE SMITH", "Jane Smith"},
		{"  mary   ann  jones ", "Mary Ann Jones"},
		{"o'neil", "O'neil"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, titleCase(tt.input))
	}
}
