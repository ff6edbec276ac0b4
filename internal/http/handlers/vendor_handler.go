package handlers

import (
	"strings"

	"stockroom/internal/log"
	"stockroom/internal/services"
	"stockroom/internal/validate"

	"github.com/gofiber/fiber/v2"
)

type VendorHandler struct {
	Vendors *services.VendorService
}

func (h *VendorHandler) List(c *fiber.Ctx) error {
	vs, err := h.Vendors.List()
	if err != nil {
		return respondErr(c, "vendor.list", err)
	}
	return c.JSON(vs)
}

func (h *VendorHandler) Search(c *fiber.Ctx) error {
	q, ok := validate.Q(c.Query("q"))
	if !ok {
		return jsonErr(c, fiber.StatusBadRequest, "Search query is required")
	}
	vs, err := h.Vendors.Search(q)
	if err != nil {
		return respondErr(c, "vendor.search", err)
	}
	return c.JSON(vs)
}

func (h *VendorHandler) BySpecialty(c *fiber.Ctx) error {
	spec := strings.TrimSpace(c.Params("specialty"))
	if spec == "" {
		return jsonErr(c, fiber.StatusBadRequest, "Specialty is required")
	}
	vs, err := h.Vendors.BySpecialty(spec)
	if err != nil {
		return respondErr(c, "vendor.specialty", err)
	}
	return c.JSON(vs)
}

func (h *VendorHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "vendor")
	}
	v, err := h.Vendors.Get(id)
	if err != nil {
		return respondErr(c, "vendor.get", err)
	}
	return c.JSON(v)
}

func (h *VendorHandler) Items(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "vendor")
	}
	items, err := h.Vendors.Items(id)
	if err != nil {
		return respondErr(c, "vendor.items", err)
	}
	return c.JSON(items)
}

func (h *VendorHandler) LinkItem(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "vendor")
	}
	var in services.LinkInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := h.Vendors.LinkItem(id, in); err != nil {
		return respondErr(c, "vendor.link", err)
	}
	log.Audit(c, "vendor.link_item", map[string]any{"vendor_id": id, "inventory_id": in.InventoryID, "is_primary": in.IsPrimary})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Inventory item linked to vendor"})
}

func (h *VendorHandler) Create(c *fiber.Ctx) error {
	var in services.VendorInput
	if err := bind(c, &in); err != nil {
		return err
	}
	v, err := h.Vendors.Create(in)
	if err != nil {
		return respondErr(c, "vendor.create", err)
	}
	log.Audit(c, "vendor.create", map[string]any{"vendor_id": v.ID, "company": v.CompanyName})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Vendor created successfully", "vendor": v})
}

func (h *VendorHandler) Update(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "vendor")
	}
	var in services.VendorInput
	if err := bind(c, &in); err != nil {
		return err
	}
	v, err := h.Vendors.Update(id, in)
	if err != nil {
		return respondErr(c, "vendor.update", err)
	}
	log.Audit(c, "vendor.update", map[string]any{"vendor_id": id})
	return c.JSON(fiber.Map{"message": "Vendor updated successfully", "vendor": v})
}

func (h *VendorHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "vendor")
	}
	name, err := h.Vendors.Delete(id)
	if err != nil {
		return respondErr(c, "vendor.delete", err)
	}
	log.Audit(c, "vendor.delete", map[string]any{"vendor_id": id, "company": name})
	return c.JSON(fiber.Map{"message": "Vendor deleted successfully"})
}

func (h *VendorHandler) Contact(c *fiber.Ctx) error {
	var in services.ContactInput
	if err := bind(c, &in); err != nil {
		return err
	}
	res, err := h.Vendors.Contact(c.UserContext(), userID(c), in)
	if err != nil {
		return respondErr(c, "vendor.contact", err)
	}
	log.Audit(c, "vendor.contact", map[string]any{"vendor_id": res.Vendor.ID, "items": len(res.Items), "type": in.ContactType})
	return c.JSON(fiber.Map{
		"message":      "Vendor contacted successfully",
		"vendor":       res.Vendor,
		"items":        res.Items,
		"notification": res.Notification,
	})
}

// ContactHistory lists the caller's contacts, optionally for one vendor.
func (h *VendorHandler) ContactHistory(c *fiber.Ctx) error {
	var vendorID int64
	if raw := c.Query("vendor_id"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return badID(c, "vendor")
		}
		vendorID = id
	}
	rows, err := h.Vendors.ContactHistory(userID(c), vendorID)
	if err != nil {
		return respondErr(c, "vendor.contact_history", err)
	}
	return c.JSON(rows)
}
