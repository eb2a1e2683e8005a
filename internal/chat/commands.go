package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ecomx/internal/catalog"
	"ecomx/internal/domain"
)

const (
	replyNotRegistered = "Sorry, your WhatsApp number is not registered with any seller account. " +
		"Please register your WhatsApp number in your dashboard settings."
	replyNoStore    = "You don't have a store set up yet. Please create a store in the platform first."
	replyNoProducts = "You don't have any products yet. Please create a product first."
	replyInternal   = "Sorry, something went wrong. Please try again."
	replyMediaError = "\nSome errors occurred during image processing."

	formatAddProduct     = "Invalid format. Use: add product NAME|CATEGORY|PRICE|DESCRIPTION|STOCK"
	formatUpdateProduct  = "Invalid format. Use: update product ID|NAME|CATEGORY|PRICE|DESCRIPTION|STOCK"
	formatDeleteProduct  = "Invalid format. Use: delete product ID"
	formatAddCategory    = "Invalid format. Use: add category NAME"
	formatEditCategory   = "Invalid format. Use: edit category OLD_NAME|NEW_NAME"
	formatDeleteCategory = "Invalid format. Use: delete category NAME"
	formatProductMedia   = "Invalid format. Use: product [ID] and attach images."
	formatAI             = "Please provide a question after 'ai'. Example: 'ai what is a noun?'"
)

func greeting(seller *domain.User, store *domain.Store) string {
	return fmt.Sprintf("Hello %s! Welcome to *%s* WhatsApp manager.\n\nType *'help'* to see available commands.",
		seller.DisplayName(), store.Name)
}

func (d *Dispatcher) helpText(_ context.Context, r *request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Welcome to *%s*\n\n *Available commands*:\n\n", r.store.Name)
	for _, c := range d.help {
		if c.help == "" {
			continue
		}
		fmt.Fprintf(&sb, "*%s* - %s\n\n", c.keyword, c.help)
	}
	return sb.String()
}

func (d *Dispatcher) askAI(ctx context.Context, r *request) string {
	if r.payload == "" {
		return formatAI
	}
	const prefix = "*AI Response:*\n\n"
	if d.AI == nil {
		return prefix + "Sorry, I couldn't process your AI request."
	}
	if d.AITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.AITimeout)
		defer cancel()
	}
	text, err := d.AI.GenerateReply(ctx, r.payload)
	if err != nil {
		fail(ctx, r, "ai", fmt.Errorf("%w: %v", domain.ErrExternalService, err))
		return prefix + "Sorry, I couldn't process your AI request."
	}
	return prefix + text
}

func (d *Dispatcher) listOrders(ctx context.Context, r *request) string {
	orders, err := d.Reports.RecentOrders(ctx, r.store.ID, 6)
	if err != nil {
		return fail(ctx, r, "orders", err)
	}
	return formatOrders(orders)
}

func (d *Dispatcher) listProducts(ctx context.Context, r *request) string {
	products, err := d.Catalog.ListProducts(ctx, r.store.ID)
	if err != nil {
		return fail(ctx, r, "products", err)
	}
	return formatProducts(products)
}

func (d *Dispatcher) listCategories(ctx context.Context, r *request) string {
	cats, err := d.Catalog.ListCategories(ctx, r.store.ID)
	if err != nil {
		return fail(ctx, r, "categories", err)
	}
	return formatCategories(cats)
}

func (d *Dispatcher) stats(ctx context.Context, r *request) string {
	st, err := d.Reports.Stats(ctx, r.store)
	if err != nil {
		return fail(ctx, r, "stats", err)
	}
	return formatStats(st)
}

func (d *Dispatcher) addProduct(ctx context.Context, r *request) string {
	fields := splitFields(r.payload)
	if len(fields) != 5 {
		return formatAddProduct
	}
	in, err := parseProduct(fields)
	if err != nil {
		return "Error adding product: " + err.Error()
	}
	p, err := d.Catalog.CreateProduct(ctx, r.store.ID, in)
	if err != nil {
		return fail(ctx, r, "add product", err)
	}

	reply := fmt.Sprintf("Product added successfully!\nID: %d\nName: %s\nPrice: N%s", p.ID, p.Name, p.Price.StringFixed(2))
	if len(r.msg.Media) > 0 {
		res := d.Media.Attach(ctx, p, r.msg.Media)
		reply += fmt.Sprintf("\n\n%d images added to product.", res.Added)
		if len(res.Errors) > 0 {
			reply += replyMediaError
		}
	}
	return reply
}

func (d *Dispatcher) updateProduct(ctx context.Context, r *request) string {
	fields := splitFields(r.payload)
	if len(fields) != 6 {
		return formatUpdateProduct
	}
	id, err := parseID(fields[0])
	if err != nil {
		return "Error updating product: product ID must be a number"
	}
	in, err := parseProduct(fields[1:])
	if err != nil {
		return "Error updating product: " + err.Error()
	}
	p, err := d.Catalog.UpdateProduct(ctx, r.store.ID, id, in)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Sprintf("Product with ID %d not found in your store.", id)
	} else if err != nil {
		return fail(ctx, r, "update product", err)
	}
	return fmt.Sprintf("Product updated successfully!\nID: %d\nName: %s\nPrice: N%s", p.ID, p.Name, p.Price.StringFixed(2))
}

func (d *Dispatcher) deleteProduct(ctx context.Context, r *request) string {
	id, err := parseID(r.payload)
	if err != nil {
		return formatDeleteProduct
	}
	p, err := d.Catalog.DeleteProduct(ctx, r.store.ID, id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Sprintf("Product with ID %d not found in your store.", id)
	} else if err != nil {
		return fail(ctx, r, "delete product", err)
	}
	return fmt.Sprintf("Product '%s' (ID: %d) deleted successfully.", p.Name, id)
}

func (d *Dispatcher) addCategory(ctx context.Context, r *request) string {
	if r.payload == "" {
		return formatAddCategory
	}
	c, err := d.Catalog.AddCategory(ctx, r.store.ID, r.payload)
	var exists *catalog.CategoryExistsError
	switch {
	case errors.As(err, &exists):
		return fmt.Sprintf("Category '%s' already exists with ID: %d", exists.Name, exists.ID)
	case err != nil:
		return fail(ctx, r, "add category", err)
	}
	return fmt.Sprintf("Category added successfully!\nID: %d\nName: %s", c.ID, c.Name)
}

func (d *Dispatcher) editCategory(ctx context.Context, r *request) string {
	names := splitFields(r.payload)
	if len(names) != 2 || names[0] == "" || names[1] == "" {
		return formatEditCategory
	}
	c, err := d.Catalog.RenameCategory(ctx, r.store.ID, names[0], names[1])
	var exists *catalog.CategoryExistsError
	switch {
	case errors.As(err, &exists):
		return fmt.Sprintf("Cannot update: A category named '%s' already exists.", exists.Name)
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Sprintf("Category '%s' not found in your store.", names[0])
	case err != nil:
		return fail(ctx, r, "edit category", err)
	}
	return fmt.Sprintf("Category updated successfully!\nID: %d\nNew Name: %s", c.ID, c.Name)
}

func (d *Dispatcher) deleteCategory(ctx context.Context, r *request) string {
	if r.payload == "" {
		return formatDeleteCategory
	}
	c, err := d.Catalog.DeleteCategory(ctx, r.store.ID, r.payload)
	var inUse *catalog.CategoryInUseError
	switch {
	case errors.As(err, &inUse):
		return fmt.Sprintf("Cannot delete: Category '%s' is used by %d products. Update these products first.", inUse.Name, inUse.Products)
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Sprintf("Category '%s' not found in your store.", r.payload)
	case err != nil:
		return fail(ctx, r, "delete category", err)
	}
	return fmt.Sprintf("Category '%s' (ID: %d) deleted successfully.", c.Name, c.ID)
}

// attachToProduct handles "product ID" sent with attachments
func (d *Dispatcher) attachToProduct(ctx context.Context, r *request) string {
	id, err := parseID(r.payload)
	if err != nil {
		return formatProductMedia
	}
	p, err := d.Catalog.GetProduct(ctx, r.store.ID, id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Sprintf("Product with ID %d not found in your store.", id)
	} else if err != nil {
		return fail(ctx, r, "product media", err)
	}
	res := d.Media.Attach(ctx, p, r.msg.Media)
	reply := fmt.Sprintf("Added %d images to '%s'.", res.Added, p.Name)
	if len(res.Errors) > 0 {
		reply += replyMediaError
	}
	return reply
}

// attachToLatest adds captionless attachments to the store's most recently
// created product. This is a heuristic, not a stable reference.
func (d *Dispatcher) attachToLatest(ctx context.Context, r *request) string {
	p, err := d.Catalog.LatestProduct(ctx, r.store.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return replyNoProducts
	} else if err != nil {
		return fail(ctx, r, "latest product media", err)
	}
	res := d.Media.Attach(ctx, p, r.msg.Media)
	reply := fmt.Sprintf("Added %d image(s) to your latest product '%s'.", res.Added, p.Name)
	if len(res.Errors) > 0 {
		reply += replyMediaError
	}
	return reply
}

func splitFields(payload string) []string {
	if payload == "" {
		return nil
	}
	fields := strings.Split(payload, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// parseProduct reads NAME|CATEGORY|PRICE|DESCRIPTION|STOCK
func parseProduct(f []string) (catalog.ProductInput, error) {
	if f[0] == "" {
		return catalog.ProductInput{}, fmt.Errorf("name is required")
	}
	price, err := decimal.NewFromString(f[2])
	if err != nil || price.IsNegative() {
		return catalog.ProductInput{}, fmt.Errorf("price must be a number, got %q", f[2])
	}
	stock, err := strconv.Atoi(f[4])
	if err != nil || stock < 0 {
		return catalog.ProductInput{}, fmt.Errorf("stock must be a whole number, got %q", f[4])
	}
	return catalog.ProductInput{
		Name:         f[0],
		CategoryName: f[1],
		Price:        price.Round(2),
		Description:  f[3],
		Stock:        stock,
	}, nil
}

func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(n), nil
}
