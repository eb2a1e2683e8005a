// Package chat turns inbound WhatsApp messages from sellers into catalog
// commands and produces the text reply.
package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ecomx/internal/ai"
	"ecomx/internal/catalog"
	"ecomx/internal/dashboard"
	"ecomx/internal/domain"
	"ecomx/internal/media"
)

// Message is one inbound chat message
type Message struct {
	From  string
	Body  string
	Media []media.Item
}

// Reports supplies the order and statistics views
type Reports interface {
	RecentOrders(ctx context.Context, storeID uuid.UUID, limit int) ([]dashboard.RecentOrder, error)
	Stats(ctx context.Context, store *domain.Store) (*dashboard.StoreStats, error)
}

// MediaAttacher stores attachments as product images
type MediaAttacher interface {
	Attach(ctx context.Context, product *domain.Product, items []media.Item) media.Result
}

// Deps are the collaborators of a Dispatcher. AI may be nil.
type Deps struct {
	Catalog   catalog.Repository
	Reports   Reports
	AI        ai.Generator
	Media     MediaAttacher
	AITimeout time.Duration
}

// request is the resolved context of a message
type request struct {
	msg     Message
	seller  *domain.User
	store   *domain.Store
	payload string // text after the keyword, original case
}

// command is one entry of the dispatch table. Exact commands match the whole
// body; the others match the keyword followed by a space or the end of input.
type command struct {
	keyword    string
	help       string
	exact      bool
	needsMedia bool
	run        func(ctx context.Context, r *request) string
}

// Dispatcher routes messages to commands. It keeps no state between messages.
type Dispatcher struct {
	Deps
	help    []command // registration order, for the help listing
	ordered []command // longest keyword first, for matching
	tracer  trace.Tracer
}

// NewDispatcher builds the command table
func NewDispatcher(deps Deps) *Dispatcher {
	d := &Dispatcher{Deps: deps, tracer: otel.Tracer("ecomx/chat")}
	d.register(command{keyword: "help", exact: true, help: "Show available commands", run: d.helpText})
	d.register(command{keyword: "orders", exact: true, help: "List recent orders", run: d.listOrders})
	d.register(command{keyword: "products", exact: true, help: "List your products", run: d.listProducts})
	d.register(command{keyword: "categories", exact: true, help: "List your categories", run: d.listCategories})
	d.register(command{keyword: "add product", help: "Add a new product (follow format: add product NAME|CATEGORY|PRICE|DESCRIPTION|STOCK). Attach images to add them to the product.", run: d.addProduct})
	d.register(command{keyword: "update product", help: "Update a product (format: update product ID|NAME|CATEGORY|PRICE|DESCRIPTION|STOCK)", run: d.updateProduct})
	d.register(command{keyword: "delete product", help: "Delete a product (format: delete product ID)", run: d.deleteProduct})
	d.register(command{keyword: "add category", help: "Add a new category (format: add category NAME)", run: d.addCategory})
	d.register(command{keyword: "edit category", help: "Edit a category (format: edit category OLD_NAME|NEW_NAME)", run: d.editCategory})
	d.register(command{keyword: "delete category", help: "Delete a category (format: delete category NAME)", run: d.deleteCategory})
	d.register(command{keyword: "stats", exact: true, help: "Show store statistics", run: d.stats})
	d.register(command{keyword: "ai", help: "Ask a question to the AI model (format: ai QUESTION)", run: d.askAI})
	d.register(command{keyword: "product", needsMedia: true, run: d.attachToProduct})

	d.ordered = append([]command(nil), d.help...)
	sort.SliceStable(d.ordered, func(i, j int) bool {
		return len(d.ordered[i].keyword) > len(d.ordered[j].keyword)
	})
	return d
}

func (d *Dispatcher) register(c command) {
	d.help = append(d.help, c)
}

// Handle identifies the seller, resolves the store and runs the matching command
func (d *Dispatcher) Handle(ctx context.Context, msg Message) string {
	ctx, span := d.tracer.Start(ctx, "chat.dispatch")
	defer span.End()

	body := strings.TrimSpace(msg.Body)
	msg.Body = body

	seller, err := d.Catalog.SellerByPhone(ctx, msg.From)
	if err != nil {
		d.logLookupError(err, msg.From, "Seller lookup failed")
		return replyNotRegistered
	}
	store, err := d.Catalog.StoreByOwner(ctx, seller.ID)
	if err != nil {
		d.logLookupError(err, msg.From, "Store lookup failed")
		return replyNoStore
	}
	span.SetAttributes(attribute.String("store.id", store.ID.String()))

	r := &request{msg: msg, seller: seller, store: store}
	name := "greeting"
	var reply string
	if len(msg.Media) > 0 && body == "" {
		name = "latest product media"
		reply = d.attachToLatest(ctx, r)
	} else if cmd, ok := d.match(r); ok {
		name = cmd.keyword
		reply = cmd.run(ctx, r)
	} else {
		reply = greeting(seller, store)
	}

	span.SetAttributes(attribute.String("chat.command", name))
	logrus.WithFields(logrus.Fields{
		"seller_id": seller.ID,
		"store_id":  store.ID,
		"command":   name,
		"media":     len(msg.Media),
	}).Info("Chat command handled")
	return reply
}

// match finds the first command, longest keyword first, that accepts the body
func (d *Dispatcher) match(r *request) (command, bool) {
	lower := strings.ToLower(r.msg.Body)
	for _, c := range d.ordered {
		if c.needsMedia && len(r.msg.Media) == 0 {
			continue
		}
		if c.exact {
			if lower == c.keyword {
				return c, true
			}
			continue
		}
		if lower == c.keyword || strings.HasPrefix(lower, c.keyword+" ") {
			r.payload = payloadAfter(r.msg.Body, c.keyword)
			return c, true
		}
	}
	return command{}, false
}

// payloadAfter returns the text following keyword in body, keeping its case
func payloadAfter(body, keyword string) string {
	if len(body) < len(keyword) || !strings.EqualFold(body[:len(keyword)], keyword) {
		return ""
	}
	return strings.TrimSpace(body[len(keyword):])
}

func (d *Dispatcher) logLookupError(err error, from, msg string) {
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	logrus.WithFields(logrus.Fields{"from": from, "error": err.Error()}).Error(msg)
}

// fail logs an unexpected error and returns the generic reply
func fail(ctx context.Context, r *request, op string, err error) string {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	logrus.WithFields(logrus.Fields{
		"store_id": r.store.ID,
		"op":       op,
		"error":    err.Error(),
	}).Error("Chat command failed")
	return replyInternal
}
