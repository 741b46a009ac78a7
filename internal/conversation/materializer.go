package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/consignedbydesign/delivery-platform/internal/messaging"
	"github.com/consignedbydesign/delivery-platform/internal/pickups"
	"github.com/consignedbydesign/delivery-platform/internal/tasks"
)

// fallbackSKU marks delivery tasks whose item never reconciled against an
// order, so the scheduler knows to chase the details down.
const fallbackSKU = "SMS-REQUEST"

// EntityMaterializer converts completed conversations into delivery tasks and
// pickup requests through the entity repositories.
type EntityMaterializer struct {
	tasks   tasks.Repository
	pickups pickups.Repository
}

// NewEntityMaterializer wires the materializer to the entity repositories.
func NewEntityMaterializer(taskRepo tasks.Repository, pickupRepo pickups.Repository) *EntityMaterializer {
	return &EntityMaterializer{tasks: taskRepo, pickups: pickupRepo}
}

func (m *EntityMaterializer) CreateDeliveryTask(ctx context.Context, q DB, conv *Conversation) (uuid.UUID, error) {
	title, sku, orderNumber := parseItemDescription(conv.ItemDescription)

	// A matched item carries its real SKU; anything else gets the synthetic
	// id so the scheduler can trace it back to the conversation.
	libertyItemID := sku
	if sku == fallbackSKU {
		libertyItemID = "SMS-" + conv.ID.String()
		title = "SMS Request from " + conv.CustomerName
	}

	task := &tasks.Task{
		ID:                   uuid.New(),
		Source:               tasks.SourceInStore,
		Status:               tasks.StatusPending,
		SKU:                  sku,
		LibertyItemID:        libertyItemID,
		ItemTitle:            title,
		ItemDescription:      conv.ItemDescription,
		CustomerName:         conv.CustomerName,
		CustomerPhone:        messaging.FormatStorage(conv.CallbackPhone),
		DeliveryAddressLine1: conv.AddressLine1,
		DeliveryAddressLine2: conv.AddressLine2,
		DeliveryCity:         conv.City,
		DeliveryState:        conv.State,
		DeliveryZip:          conv.Zip,
		DeliveryNotes:        conv.Notes,
	}
	// The source stays in_store even when the item reconciled against an
	// online order: the task originated from SMS, the order number is just
	// a cross-reference for the scheduler.
	task.ShopifyOrderNumber = orderNumber

	if err := m.tasks.Create(ctx, q, task); err != nil {
		return uuid.Nil, fmt.Errorf("materialize delivery task: %w", err)
	}
	return task.ID, nil
}

func (m *EntityMaterializer) CreatePickupRequest(ctx context.Context, q DB, conv *Conversation) (uuid.UUID, error) {
	pickup := &pickups.Pickup{
		ID:                 uuid.New(),
		Status:             pickups.StatusPendingReview,
		CustomerName:       conv.CustomerName,
		CustomerPhone:      messaging.FormatStorage(conv.CallbackPhone),
		PickupAddressLine1: conv.AddressLine1,
		PickupAddressLine2: conv.AddressLine2,
		PickupCity:         conv.City,
		PickupState:        conv.State,
		PickupZip:          conv.Zip,
		ItemDescription:    "SMS Pickup Request from " + conv.CustomerName,
		ItemCount:          1,
		ItemPhotos:         conv.PhotoURLs,
		PickupNotes:        conv.Notes,
	}

	if err := m.pickups.Create(ctx, q, pickup); err != nil {
		return uuid.Nil, fmt.Errorf("materialize pickup request: %w", err)
	}
	return pickup.ID, nil
}

// parseItemDescription splits the "Title | SKU: x | Order #n" convention the
// engine writes after a catalog match. Free-text descriptions come back with
// the fallback SKU and are retitled by the caller.
func parseItemDescription(description string) (title, sku, orderNumber string) {
	title = description
	sku = fallbackSKU

	parts := strings.Split(description, " | ")
	if len(parts) < 2 {
		return title, sku, ""
	}

	title = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "SKU: "):
			if v := strings.TrimSpace(strings.TrimPrefix(part, "SKU: ")); v != "" {
				sku = v
			}
		case strings.HasPrefix(part, "Order #"):
			orderNumber = strings.TrimSpace(strings.TrimPrefix(part, "Order #"))
		}
	}
	return title, sku, orderNumber
}
