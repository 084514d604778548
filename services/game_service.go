package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"clicker-game-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrItemNotFound = errors.New("item not found")
)

// GameService is the economy engine. Every operation is a single transaction
// holding a row lock on the affected player, so two rapid clicks from the
// same user never race on a stale read-modify-write. Operations never span
// players, so there is no cross-user locking.
type GameService struct {
	DB *gorm.DB

	// Clock, swappable in tests.
	now func() time.Time
}

func NewGameService(db *gorm.DB) *GameService {
	return &GameService{DB: db, now: time.Now}
}

// lockPlayer fetches the player row FOR UPDATE inside tx. SQLite (used in
// tests) serializes writers on its own and rejects the locking clause.
func (s *GameService) lockPlayer(tx *gorm.DB, externalUserID string) (*models.Player, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var p models.Player
	if err := q.Where("external_user_id = ?", externalUserID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &p, nil
}

// EnsurePlayer creates the local economy row for an authenticated user if it
// does not exist yet (idempotent). Baseline stats: 1.0 per click, no passive
// rate.
func (s *GameService) EnsurePlayer(externalUserID, nickname string) (*models.Player, error) {
	var p models.Player
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = models.Player{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Nickname:       nickname,
			PointsPerClick: 1.0,
		}
		if err := s.DB.Create(&p).Error; err != nil {
			return nil, fmt.Errorf("failed to create player: %w", err)
		}
		log.Printf("✅ [Game] New player registered: %s (%s)", nickname, externalUserID)
		return &p, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetState returns the player's current snapshot. Passive income is applied
// and persisted as a side effect — a "read" may advance points and the
// last-updated stamp.
func (s *GameService) GetState(externalUserID string) (*models.Player, error) {
	var out *models.Player
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		p, err := s.lockPlayer(tx, externalUserID)
		if err != nil {
			return err
		}
		ApplyPassiveIncome(p, s.now())
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ProcessClick applies passive income, then credits one click at the
// player's current rate. Each click adds int64(points_per_click)
// individually — fractional bonuses truncate per click and are never
// accumulated across clicks.
func (s *GameService) ProcessClick(externalUserID string) (float64, *models.Player, error) {
	var earned float64
	var out *models.Player
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		p, err := s.lockPlayer(tx, externalUserID)
		if err != nil {
			return err
		}
		ApplyPassiveIncome(p, s.now())

		earned = p.PointsPerClick
		p.Points += int64(earned)
		p.LifetimePoints += int64(earned)
		p.Clicks++

		if err := tx.Save(p).Error; err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return earned, out, nil
}

// PurchaseItem resolves the item, prices it from the player's current owned
// quantity and applies the purchase atomically: deduction, inventory
// increment and stat bonuses all commit together or not at all. Not having
// enough points is a normal outcome (Success=false), distinct from
// ErrItemNotFound.
func (s *GameService) PurchaseItem(externalUserID, itemID string) (*models.PurchaseResult, error) {
	var result *models.PurchaseResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		p, err := s.lockPlayer(tx, externalUserID)
		if err != nil {
			return err
		}
		ApplyPassiveIncome(p, s.now())

		var item models.Item
		if err := tx.Where("id = ?", itemID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		var owned models.PlayerItem
		quantity := int64(0)
		err = tx.Where("player_id = ? AND item_id = ?", p.ID, item.ID).First(&owned).Error
		switch {
		case err == nil:
			quantity = owned.Quantity
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first purchase of this item
		default:
			return err
		}

		cost := NextItemCost(item.BaseCost, quantity, item.CostMultiplier)
		if p.Points < cost {
			result = &models.PurchaseResult{
				Success: false,
				Message: "Not enough points",
			}
			// The failed purchase still counts as an authoritative read, so
			// keep the accrual side effects.
			return tx.Save(p).Error
		}

		p.Points -= cost
		p.PointsPerClick += item.PointsPerClick
		p.PointsPerSecond += item.PointsPerSecond

		if owned.ID == "" {
			owned = models.PlayerItem{
				ID:       uuid.NewString(),
				PlayerID: p.ID,
				ItemID:   item.ID,
				Quantity: 1,
			}
			if err := tx.Create(&owned).Error; err != nil {
				return err
			}
		} else {
			owned.Quantity++
			if err := tx.Save(&owned).Error; err != nil {
				return err
			}
		}

		if err := tx.Save(p).Error; err != nil {
			return err
		}

		nextCost := NextItemCost(item.BaseCost, owned.Quantity, item.CostMultiplier)
		result = &models.PurchaseResult{
			Success:            true,
			Message:            fmt.Sprintf("Successfully purchased %s", item.Name),
			NewPoints:          &p.Points,
			NewPointsPerClick:  &p.PointsPerClick,
			NewPointsPerSecond: &p.PointsPerSecond,
			ItemQuantity:       &owned.Quantity,
			ItemCost:           &nextCost,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CalculatedItems prices the whole catalog for one player, cheapest first.
func (s *GameService) CalculatedItems(externalUserID string) ([]models.CalculatedItem, error) {
	var p models.Player
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var items []models.Item
	if err := s.DB.Order("base_cost ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	var ownedRows []models.PlayerItem
	if err := s.DB.Where("player_id = ?", p.ID).Find(&ownedRows).Error; err != nil {
		return nil, err
	}
	ownedByItem := make(map[string]int64, len(ownedRows))
	for _, o := range ownedRows {
		ownedByItem[o.ItemID] = o.Quantity
	}

	calculated := make([]models.CalculatedItem, 0, len(items))
	for _, item := range items {
		quantity := ownedByItem[item.ID]
		calculated = append(calculated, models.CalculatedItem{
			ID:              item.ID,
			Name:            item.Name,
			Description:     item.Description,
			BaseCost:        item.BaseCost,
			CurrentCost:     NextItemCost(item.BaseCost, quantity, item.CostMultiplier),
			PointsPerClick:  item.PointsPerClick,
			PointsPerSecond: item.PointsPerSecond,
			CostMultiplier:  item.CostMultiplier,
			Quantity:        quantity,
			ImageURL:        item.ImageURL,
		})
	}
	return calculated, nil
}

// GetStateWithItems returns the accrued snapshot plus the catalog priced for
// this player.
func (s *GameService) GetStateWithItems(externalUserID string) (*models.GameStateWithItems, error) {
	p, err := s.GetState(externalUserID)
	if err != nil {
		return nil, err
	}
	items, err := s.CalculatedItems(externalUserID)
	if err != nil {
		return nil, err
	}
	return &models.GameStateWithItems{GameState: p.GameState(), Items: items}, nil
}

// Leaderboard returns the top players by lifetime points. Rank is the 1-based
// position in the sorted result; equal scores get consecutive ranks. Passive
// income is NOT applied to the listed players — entries can lag behind what a
// direct state fetch would show, which is accepted.
func (s *GameService) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var players []models.Player
	if err := s.DB.Order("lifetime_points DESC").Limit(limit).Find(&players).Error; err != nil {
		return nil, err
	}
	entries := make([]models.LeaderboardEntry, 0, len(players))
	for i, p := range players {
		entries = append(entries, models.LeaderboardEntry{
			ID:             p.ExternalUserID,
			Nickname:       p.Nickname,
			LifetimePoints: p.LifetimePoints,
			Rank:           i + 1,
		})
	}
	return entries, nil
}
