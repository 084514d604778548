package services

import (
	"errors"
	"path/filepath"

	"clicker-game-backend/models"
	"clicker-game-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ItemService manages the item catalog. The economy engine only reads the
// catalog; mutation lives here. There is no privilege model on these routes
// yet — the auth service hands us identity, not roles.
type ItemService struct {
	DB *gorm.DB
}

func NewItemService(db *gorm.DB) *ItemService {
	return &ItemService{DB: db}
}

type itemPayload struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	BaseCost        int64   `json:"base_cost"`
	PointsPerClick  float64 `json:"points_per_click"`
	PointsPerSecond float64 `json:"points_per_second"`
	CostMultiplier  float64 `json:"cost_multiplier"`
}

// GetAllItems lists the catalog, cheapest first.
func (s *ItemService) GetAllItems(c *fiber.Ctx) error {
	var items []models.Item
	if err := s.DB.Order("base_cost ASC").Find(&items).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch items"})
	}
	return c.JSON(items)
}

// GetItem returns one catalog entry.
func (s *ItemService) GetItem(c *fiber.Ctx) error {
	var item models.Item
	if err := s.DB.Where("id = ?", c.Params("id")).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "item not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch item"})
	}
	return c.JSON(item)
}

// CreateItem adds a catalog entry.
func (s *ItemService) CreateItem(c *fiber.Ctx) error {
	var payload itemPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item payload"})
	}
	if payload.Name == "" || payload.BaseCost < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required and base_cost must be >= 0"})
	}
	if payload.CostMultiplier == 0 {
		payload.CostMultiplier = 1.15
	}

	item := models.Item{
		ID:              uuid.NewString(),
		Name:            payload.Name,
		Description:     payload.Description,
		BaseCost:        payload.BaseCost,
		PointsPerClick:  payload.PointsPerClick,
		PointsPerSecond: payload.PointsPerSecond,
		CostMultiplier:  payload.CostMultiplier,
	}
	if err := s.DB.Create(&item).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "item already exists or is invalid"})
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateItem edits a catalog entry in place. Running purchases are not
// affected: they read the item inside their own transaction.
func (s *ItemService) UpdateItem(c *fiber.Ctx) error {
	var item models.Item
	if err := s.DB.Where("id = ?", c.Params("id")).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "item not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch item"})
	}

	var payload itemPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item payload"})
	}
	if payload.Name != "" {
		item.Name = payload.Name
	}
	if payload.Description != "" {
		item.Description = payload.Description
	}
	if payload.BaseCost > 0 {
		item.BaseCost = payload.BaseCost
	}
	if payload.PointsPerClick != 0 {
		item.PointsPerClick = payload.PointsPerClick
	}
	if payload.PointsPerSecond != 0 {
		item.PointsPerSecond = payload.PointsPerSecond
	}
	if payload.CostMultiplier != 0 {
		item.CostMultiplier = payload.CostMultiplier
	}

	if err := s.DB.Save(&item).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update item"})
	}
	return c.JSON(item)
}

// DeleteItem removes a catalog entry. Ownership rows stay — players keep the
// bonuses they already bought.
func (s *ItemService) DeleteItem(c *fiber.Ctx) error {
	res := s.DB.Where("id = ?", c.Params("id")).Delete(&models.Item{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete item"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "item not found"})
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// UploadItemImage attaches an image to an item. Small public asset → R2 when
// configured, local uploads dir otherwise.
func (s *ItemService) UploadItemImage(c *fiber.Ctx) error {
	var item models.Item
	if err := s.DB.Where("id = ?", c.Params("id")).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "item not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch item"})
	}

	imageFile, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file is required"})
	}

	ext := filepath.Ext(imageFile.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := "items/" + slug.Make(item.Name) + "-" + uuid.NewString() + ext

	var imageURL string
	if utils.R2Enabled() {
		imageURL, err = utils.UploadFileToR2(imageFile, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload image"})
		}
	} else {
		localPath := utils.GetUploadPath(key)
		if err := utils.SaveFile(imageFile, localPath); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save image"})
		}
		imageURL = "/" + localPath
	}

	item.ImageURL = &imageURL
	if err := s.DB.Save(&item).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update item"})
	}
	return c.JSON(item)
}
