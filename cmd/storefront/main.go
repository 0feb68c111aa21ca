// Package main — консольный клиент магазина билетов чемпионата мира.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/mmeshcher/worldcup-storefront/internal/api"
	"github.com/mmeshcher/worldcup-storefront/internal/cart"
	"github.com/mmeshcher/worldcup-storefront/internal/checkout"
	"github.com/mmeshcher/worldcup-storefront/internal/config"
	"github.com/mmeshcher/worldcup-storefront/internal/guard"
	"github.com/mmeshcher/worldcup-storefront/internal/model"
	"github.com/mmeshcher/worldcup-storefront/internal/session"
	"github.com/mmeshcher/worldcup-storefront/internal/store"
)

const usage = `usage: storefront [flags] <command> [args]

commands:
  register <email> <password> [firstname] [lastname]
  login <email> <password>
  logout
  whoami
  matches
  match <id>
  teams
  groups
  cart add <matchId> <category>
  cart update <matchId> <category> <quantity>
  cart remove <matchId> <category>
  cart list
  cart clear
  checkout
  pay
  tickets
`

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(cfg, logger)
	if err != nil {
		sugar.Fatalw("initialization error", "error", err.Error())
	}

	if err := app.run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	client   *api.Client
	cart     *cart.Engine
	session  *session.Engine
	checkout *checkout.Service
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	client, err := api.NewPersistentClient(cfg.APIAddress, cfg.RequestTimeout, cfg.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	fileStore, err := store.NewFileStore(cfg.StateFile)
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}

	cartEngine := cart.New(fileStore, logger)
	sess := session.New(client, cartEngine, logger)

	return &app{
		client:   client,
		cart:     cartEngine,
		session:  sess,
		checkout: checkout.NewService(client, cartEngine),
	}, nil
}

func (a *app) run(ctx context.Context, args []string) error {
	a.session.Initialize(ctx)

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		a.session.Logout(ctx)
		fmt.Println("signed out")
		return nil
	case "whoami":
		return a.whoami()
	case "matches":
		return a.matches(ctx)
	case "match":
		return a.match(ctx, rest)
	case "teams":
		return a.teams(ctx)
	case "groups":
		return a.groups(ctx)
	case "cart":
		return a.cartCmd(ctx, rest)
	case "checkout":
		return a.submit(ctx)
	case "pay":
		return a.pay(ctx)
	case "tickets":
		return a.tickets(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// requireAuth проверяет доступ к защищённой операции по состоянию сессии.
func (a *app) requireAuth() error {
	decision := guard.CanAccessProtected(a.session.State())
	switch decision.Action {
	case guard.Allow:
		return nil
	case guard.Redirect:
		return fmt.Errorf("not signed in, go to %s first (storefront login <email> <password>)", decision.RedirectTo)
	default:
		return errors.New("session is still loading, try again")
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: register <email> <password> [firstname] [lastname]")
	}

	req := api.SignupRequest{Email: args[0], Password: args[1]}
	if len(args) > 2 {
		req.Firstname = args[2]
	}
	if len(args) > 3 {
		req.Lastname = args[3]
	}

	if err := a.session.Register(ctx, req); err != nil {
		return err
	}

	fmt.Println("registered as", args[0])
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: login <email> <password>")
	}

	if err := a.session.Login(ctx, args[0], args[1]); err != nil {
		return err
	}

	fmt.Println("signed in as", args[0])
	return nil
}

func (a *app) whoami() error {
	state := a.session.State()
	if state.User == nil {
		fmt.Println("anonymous")
		return nil
	}

	fmt.Printf("%s %s <%s>\n", state.User.Firstname, state.User.Lastname, state.User.Email)
	return nil
}

func (a *app) matches(ctx context.Context) error {
	matches, err := a.client.Matches(ctx)
	if err != nil {
		return err
	}

	for _, m := range matches {
		fmt.Printf("%4d  %-28s %s  %s, %s  (%d seats)\n",
			m.ID, m.Label(), m.Date, m.Stadium.Name, m.Stadium.City, m.AvailableSeats)
	}
	return nil
}

func (a *app) match(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: match <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid match id %q", args[0])
	}

	m, err := a.client.MatchDetails(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("%s — %s, %s (%s)\n", m.Label(), m.Stadium.Name, m.Stadium.City, m.Date)
	for _, name := range []model.CategoryName{model.CategoryVIP, model.Category1, model.Category2, model.Category3} {
		cat, ok := m.Categories[name]
		if !ok {
			continue
		}
		fmt.Printf("  %-12s %8.2f  %d seats\n", name, cat.Price, cat.AvailableSeats)
	}
	return nil
}

func (a *app) teams(ctx context.Context) error {
	teams, err := a.client.Teams(ctx)
	if err != nil {
		return err
	}

	for _, t := range teams {
		fmt.Printf("%3d  %s %s (%s)\n", t.ID, t.Flag, t.Name, t.Continent)
	}
	return nil
}

func (a *app) groups(ctx context.Context) error {
	groups, err := a.client.Groups(ctx)
	if err != nil {
		return err
	}

	for _, g := range groups {
		fmt.Printf("%3d  %s\n", g.ID, g.Name)
	}
	return nil
}

func (a *app) cartCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: cart add|update|remove|list|clear")
	}

	switch args[0] {
	case "add":
		return a.cartAdd(ctx, args[1:])
	case "update":
		return a.cartUpdate(args[1:])
	case "remove":
		if len(args) < 3 {
			return errors.New("usage: cart remove <matchId> <category>")
		}
		matchID, category, err := parseLineKey(args[1], args[2])
		if err != nil {
			return err
		}
		a.cart.RemoveFromCart(matchID, category)
		return a.cartList()
	case "list":
		return a.cartList()
	case "clear":
		a.cart.ClearCart()
		fmt.Println("cart cleared")
		return nil
	default:
		return fmt.Errorf("unknown cart command %q", args[0])
	}
}

// cartAdd добавляет один билет, сверяясь со свежими остатками сервера.
func (a *app) cartAdd(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: cart add <matchId> <category>")
	}
	matchID, category, err := parseLineKey(args[0], args[1])
	if err != nil {
		return err
	}

	m, err := a.client.MatchDetails(ctx, matchID)
	if err != nil {
		return err
	}

	cat, ok := m.Categories[category]
	if !ok {
		return fmt.Errorf("unknown category %s for match %d", category, matchID)
	}

	if err := a.cart.AddToCart(matchID, m.Label(), category, cat.Price, cat.AvailableSeats); err != nil {
		return err
	}

	return a.cartList()
}

func (a *app) cartUpdate(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: cart update <matchId> <category> <quantity>")
	}
	matchID, category, err := parseLineKey(args[0], args[1])
	if err != nil {
		return err
	}
	quantity, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[2])
	}

	if err := a.cart.UpdateQuantity(matchID, category, quantity); err != nil {
		return err
	}

	return a.cartList()
}

func (a *app) cartList() error {
	lines := a.cart.Lines()
	if len(lines) == 0 {
		fmt.Println("cart is empty")
		return nil
	}

	for _, l := range lines {
		fmt.Printf("%4d  %-28s %-12s %d x %.2f\n",
			l.MatchID, l.MatchLabel, l.CategoryName, l.Quantity, l.UnitPrice)
	}

	subtotal := a.cart.Subtotal()
	fmt.Printf("subtotal: %.2f, total with service fee: %.2f\n",
		subtotal, checkout.DisplayTotal(subtotal))
	return nil
}

func (a *app) submit(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	booking, err := a.checkout.Submit(ctx)
	if err != nil {
		return err
	}

	for _, t := range booking.Tickets {
		label := ""
		if t.Match != nil {
			label = t.Match.HomeTeam + " vs " + t.Match.AwayTeam
		}
		fmt.Printf("%4d  %-28s %-12s %.2f  %s\n", t.ID, label, t.Category, t.Price, t.Status)
	}
	fmt.Printf("booked %d tickets, to pay: %.2f (run: storefront pay)\n",
		len(booking.Tickets), checkout.DisplayTotal(booking.TotalPrice))
	return nil
}

func (a *app) pay(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	if err := a.checkout.Pay(ctx); err != nil {
		return err
	}

	fmt.Println("booking paid")
	return nil
}

func (a *app) tickets(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	tickets, err := a.client.MyTickets(ctx)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		fmt.Println("no tickets")
		return nil
	}

	for _, t := range tickets {
		label := ""
		if t.Match != nil {
			label = t.Match.HomeTeam + " vs " + t.Match.AwayTeam
		}
		fmt.Printf("%4d  %-28s %-12s %.2f  %s\n", t.ID, label, t.Category, t.Price, t.Status)
	}
	return nil
}

func parseLineKey(matchArg, categoryArg string) (int64, model.CategoryName, error) {
	matchID, err := strconv.ParseInt(matchArg, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid match id %q", matchArg)
	}

	category := model.CategoryName(categoryArg)
	switch category {
	case model.CategoryVIP, model.Category1, model.Category2, model.Category3:
		return matchID, category, nil
	default:
		return 0, "", fmt.Errorf("unknown category %q", categoryArg)
	}
}
