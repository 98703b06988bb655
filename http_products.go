package shop

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ProductController owns the catalog endpoints. Reads are public; writes
// sit behind the admin guard.
type ProductController struct {
	Logger Logger
	Repo   RepositoryManager
}

func NewProductController(repo RepositoryManager, logger Logger) *ProductController {
	if logger == nil {
		logger = defLogger{}
	}
	return &ProductController{
		Logger: logger,
		Repo:   repo,
	}
}

// RegisterRoutes mounts the catalog endpoints. The protected handler and
// admin guard wrap the mutating routes.
func (p *ProductController) RegisterRoutes(app fiber.Router, contextKey string, protected fiber.Handler) {
	app.Get("/products", p.Search)
	app.Get("/products/:id", p.Show)

	admin := []fiber.Handler{protected, RequireAdmin(contextKey)}
	app.Post("/products", append(admin, p.Create)...)
	app.Put("/products/:id", append(admin, p.Update)...)
	app.Delete("/products/:id", append(admin, p.Delete)...)
}

// Search lists the catalog, optionally filtered by a name query
func (p *ProductController) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	records, err := p.Repo.Products().Search(c.UserContext(), query, limit, offset)
	if err != nil {
		return WriteError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"products": records,
	})
}

func (p *ProductController) Show(c *fiber.Ctx) error {
	record, err := p.Repo.Products().FindByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if goerrors.IsNotFound(err) {
			return WriteError(c, goerrors.New("product not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound))
		}
		return WriteError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"product": record,
	})
}

// ProductPayload is the create/update body
type ProductPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"priceCents"`
	InStock     bool   `json:"inStock"`
}

// Validate will run validation rules
func (r ProductPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
		validation.Field(&r.Category, validation.Length(0, 100)),
		validation.Field(&r.PriceCents, validation.Min(0)),
	)
}

func (p *ProductController) Create(c *fiber.Ctx) error {
	payload := new(ProductPayload)

	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryValidation, "product validation failed").
			WithCode(goerrors.CodeBadRequest))
	}

	record := &Product{
		ID:          uuid.New(),
		Name:        payload.Name,
		Description: payload.Description,
		Category:    payload.Category,
		PriceCents:  payload.PriceCents,
		InStock:     payload.InStock,
	}

	created, err := p.Repo.Products().Create(c.UserContext(), record)
	if err != nil {
		return WriteError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"product": created,
	})
}

func (p *ProductController) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed product id").
			WithCode(goerrors.CodeBadRequest))
	}

	payload := new(ProductPayload)

	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryValidation, "product validation failed").
			WithCode(goerrors.CodeBadRequest))
	}

	record, err := p.Repo.Products().FindByID(c.UserContext(), id.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return WriteError(c, goerrors.New("product not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound))
		}
		return WriteError(c, err)
	}

	record.Name = payload.Name
	record.Description = payload.Description
	record.Category = payload.Category
	record.PriceCents = payload.PriceCents
	record.InStock = payload.InStock

	updated, err := p.Repo.Products().Update(c.UserContext(), record)
	if err != nil {
		return WriteError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"product": updated,
	})
}

func (p *ProductController) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed product id").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := p.Repo.Products().SoftDelete(c.UserContext(), id); err != nil {
		if goerrors.IsNotFound(err) {
			return WriteError(c, goerrors.New("product not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound))
		}
		return WriteError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "product deleted",
	})
}
