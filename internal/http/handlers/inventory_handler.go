package handlers

import (
	"stockroom/internal/log"
	"stockroom/internal/services"
	"stockroom/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

func (h *InventoryHandler) List(c *fiber.Ctx) error {
	items, err := h.Inv.List()
	if err != nil {
		return respondErr(c, "inventory.list", err)
	}
	return c.JSON(items)
}

func (h *InventoryHandler) Summary(c *fiber.Ctx) error {
	s, err := h.Inv.Summary(userID(c))
	if err != nil {
		return respondErr(c, "inventory.summary", err)
	}
	return c.JSON(s)
}

func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.Inv.LowStock()
	if err != nil {
		return respondErr(c, "inventory.low_stock", err)
	}
	return c.JSON(items)
}

func (h *InventoryHandler) Search(c *fiber.Ctx) error {
	q, ok := validate.Q(c.Query("q"))
	if !ok {
		return jsonErr(c, fiber.StatusBadRequest, "Search query is required")
	}
	items, err := h.Inv.Search(q)
	if err != nil {
		return respondErr(c, "inventory.search", err)
	}
	return c.JSON(items)
}

func (h *InventoryHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "inventory")
	}
	it, err := h.Inv.Get(id)
	if err != nil {
		return respondErr(c, "inventory.get", err)
	}
	return c.JSON(it)
}

func (h *InventoryHandler) Create(c *fiber.Ctx) error {
	var in services.ItemInput
	if err := bind(c, &in); err != nil {
		return err
	}
	it, err := h.Inv.Create(c.UserContext(), userID(c), in)
	if err != nil {
		return respondErr(c, "inventory.create", err)
	}
	log.Audit(c, "inventory.create", map[string]any{"inventory_id": it.ID, "name": it.Name})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Inventory item created successfully", "item": it})
}

func (h *InventoryHandler) Update(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "inventory")
	}
	var in services.ItemInput
	if err := bind(c, &in); err != nil {
		return err
	}
	it, err := h.Inv.Update(c.UserContext(), id, in)
	if err != nil {
		return respondErr(c, "inventory.update", err)
	}
	log.Audit(c, "inventory.update", map[string]any{"inventory_id": id, "quantity": it.Quantity})
	return c.JSON(fiber.Map{"message": "Inventory item updated successfully", "item": it})
}

func (h *InventoryHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "inventory")
	}
	name, err := h.Inv.Delete(id)
	if err != nil {
		return respondErr(c, "inventory.delete", err)
	}
	log.Audit(c, "inventory.delete", map[string]any{"inventory_id": id, "name": name})
	return c.JSON(fiber.Map{"message": "Inventory item deleted successfully"})
}
