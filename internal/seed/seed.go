package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/jhnmartin/hey-sub000/internal/event/domain"
	identitydomain "github.com/jhnmartin/hey-sub000/internal/identity/domain"
	inventorydomain "github.com/jhnmartin/hey-sub000/internal/inventory/domain"
	"gorm.io/gorm"
)

const (
	demoBuyerEmail   = "demo@boxoffice.local"
	demoBuyerDisplay = "Demo Buyer"
	demoEventName    = "Box Office Demo Night"
	demoSessionTTL   = 30 * 24 * time.Hour
)

var demoTiers = []struct {
	Name      string
	UnitPrice int64
	Quantity  int64
}{
	{"General Admission", 2500, 200},
	{"VIP", 9000, 20},
}

// Demo identifies the rows EnsureDemo left in place.
type Demo struct {
	BuyerID snowflake.ID
	EventID snowflake.ID
	TierIDs []snowflake.ID
}

// EnsureDemo seeds a buyer with a session for token and a platform event,
// then reconciles the event's tiers with demoTiers through the inventory
// service. Rows that already exist are reused.
func EnsureDemo(ctx context.Context, db *gorm.DB, node *snowflake.Node, inventory inventorydomain.Service, now time.Time, token string) (Demo, error) {
	if db == nil || inventory == nil {
		return Demo{}, errors.New("seed database handle and inventory service are required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Demo{}, errors.New("seed session token is required")
	}

	var demo Demo
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		buyer, err := ensureBuyerTx(ctx, tx, node, now)
		if err != nil {
			return err
		}
		if err := ensureSessionTx(ctx, tx, node, buyer.ID, token, now); err != nil {
			return err
		}
		event, err := ensureEventTx(ctx, tx, node, now)
		if err != nil {
			return err
		}
		demo = Demo{BuyerID: buyer.ID, EventID: event.ID}
		return nil
	})
	if err != nil {
		return Demo{}, err
	}

	tierIDs, err := reconcileTiers(ctx, db, inventory, demo.EventID)
	if err != nil {
		return Demo{}, err
	}
	demo.TierIDs = tierIDs
	return demo, nil
}

// reconcileTiers creates missing demo tiers, resets edited ones and retires
// tiers that are no longer listed. Retired tiers that sold anything are hidden
// instead of deleted.
func reconcileTiers(ctx context.Context, db *gorm.DB, inventory inventorydomain.Service, eventID snowflake.ID) ([]snowflake.ID, error) {
	var existing []inventorydomain.TicketTier
	if err := db.WithContext(ctx).Where("event_id = ?", eventID).Find(&existing).Error; err != nil {
		return nil, err
	}
	byName := make(map[string]inventorydomain.TicketTier, len(existing))
	for _, tier := range existing {
		byName[tier.Name] = tier
	}

	ids := make([]snowflake.ID, 0, len(demoTiers))
	for _, want := range demoTiers {
		tier, ok := byName[want.Name]
		delete(byName, want.Name)
		if !ok {
			created, err := inventory.CreateTier(ctx, inventorydomain.CreateTierRequest{
				EventID:   eventID,
				Name:      want.Name,
				UnitPrice: want.UnitPrice,
				Quantity:  want.Quantity,
			})
			if err != nil {
				return nil, err
			}
			ids = append(ids, created.ID)
			continue
		}
		if tier.UnitPrice != want.UnitPrice || tier.Quantity != want.Quantity {
			price, quantity := want.UnitPrice, want.Quantity
			if _, err := inventory.UpdateTier(ctx, tier.ID, inventorydomain.UpdateTierRequest{
				UnitPrice: &price,
				Quantity:  &quantity,
			}); err != nil {
				return nil, err
			}
		}
		ids = append(ids, tier.ID)
	}

	for _, stale := range byName {
		if stale.Sold == 0 {
			if err := inventory.DeleteTier(ctx, stale.ID); err != nil {
				return nil, err
			}
			continue
		}
		hidden := inventorydomain.TierStatusHidden
		if _, err := inventory.UpdateTier(ctx, stale.ID, inventorydomain.UpdateTierRequest{Status: &hidden}); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func ensureBuyerTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, now time.Time) (identitydomain.Buyer, error) {
	var buyer identitydomain.Buyer
	err := tx.WithContext(ctx).Where("email = ?", demoBuyerEmail).First(&buyer).Error
	if err == nil {
		return buyer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return buyer, err
	}
	buyer = identitydomain.Buyer{
		ID:          node.Generate(),
		DisplayName: demoBuyerDisplay,
		Email:       demoBuyerEmail,
		CreatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&buyer).Error; err != nil {
		return buyer, err
	}
	return buyer, nil
}

func ensureSessionTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, buyerID snowflake.ID, token string, now time.Time) error {
	hash := identitydomain.HashToken(token)
	var session identitydomain.Session
	err := tx.WithContext(ctx).Where("token_hash = ?", hash).First(&session).Error
	if err == nil {
		if session.BuyerID != buyerID {
			return errors.New("seed session token belongs to another buyer")
		}
		return tx.WithContext(ctx).Model(&identitydomain.Session{}).
			Where("id = ?", session.ID).
			Updates(map[string]any{"expires_at": now.Add(demoSessionTTL), "revoked_at": nil}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	session = identitydomain.Session{
		ID:        node.Generate(),
		BuyerID:   buyerID,
		TokenHash: hash,
		ExpiresAt: now.Add(demoSessionTTL),
		CreatedAt: now,
	}
	return tx.WithContext(ctx).Create(&session).Error
}

func ensureEventTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, now time.Time) (eventdomain.Event, error) {
	var event eventdomain.Event
	err := tx.WithContext(ctx).Where("name = ?", demoEventName).First(&event).Error
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return event, err
	}
	startsAt := now.Add(14 * 24 * time.Hour).Truncate(time.Hour)
	event = eventdomain.Event{
		ID:            node.Generate(),
		Name:          demoEventName,
		TicketingMode: eventdomain.TicketingModePlatform,
		StartsAt:      &startsAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.WithContext(ctx).Create(&event).Error; err != nil {
		return event, err
	}
	return event, nil
}
