package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jrsteele09/go-budget-client/auth"
	"github.com/jrsteele09/go-budget-client/expenses"
	"github.com/jrsteele09/go-budget-client/internal/config"
	"github.com/jrsteele09/go-budget-client/state"
	"github.com/jrsteele09/go-budget-client/store"
	"github.com/jrsteele09/go-budget-client/templates"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// app is shared by every command. The store is opened on first use so that
// commands which never talk to the API (serve-fake) do not touch the token
// file.
type app struct {
	cfg   config.Config
	out   io.Writer
	store *store.Store
	opts  []store.OpenOption
}

func (a *app) open() (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.Open(a.cfg, a.opts...)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

func (a *app) print(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[budgetctl.print] failed to encode output")
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}

// failure prefers the message the slice stored for display over the raw
// error.
func failure(err error, status state.Status) error {
	if status.Error != "" {
		return errors.New(status.Error)
	}
	return err
}

func newRootCommand(cfg config.Config, out io.Writer, opts ...store.OpenOption) *cobra.Command {
	a := &app{cfg: cfg, out: out, opts: opts}

	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Command-line client for the budget API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newRegisterCommand(a),
		newProfileCommand(a),
		newExpensesCommand(a),
		newCategoriesCommand(a),
		newTemplatesCommand(a),
		newChatCommand(a),
		newServeFakeCommand(a),
	)
	return root
}

func newLoginCommand(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			if err := s.Auth.Login(cmd.Context(), username, password); err != nil {
				_, status := s.Auth.Read()
				return failure(err, status)
			}
			_, err = fmt.Fprintf(a.out, "Signed in as %s\n", username)
			return err
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			s.Auth.Logout(cmd.Context())
			_, err = fmt.Fprintln(a.out, "Signed out")
			return err
		},
	}
}

func newRegisterCommand(a *app) *cobra.Command {
	var (
		req    auth.RegisterRequest
		income string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := decimal.NewFromString(income)
			if err != nil {
				return errors.Wrapf(err, "invalid monthly income %q", income)
			}
			req.MonthlyIncome = amount

			s, err := a.open()
			if err != nil {
				return err
			}
			user, err := s.Auth.Register(cmd.Context(), req)
			if err != nil {
				_, status := s.Auth.Read()
				return failure(err, status)
			}
			return a.print(user)
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "username")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&income, "income", "0", "monthly income")
	cmd.Flags().StringVar(&req.Currency, "currency", "USD", "ISO 4217 currency code")
	return cmd
}

func newProfileCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user and profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			if err := s.Auth.FetchUserProfile(cmd.Context()); err != nil {
				_, status := s.Auth.Read()
				return failure(err, status)
			}
			session, _ := s.Auth.Read()
			return a.print(struct {
				User    *auth.User    `json:"user"`
				Profile *auth.Profile `json:"profile"`
			}{session.User, session.Profile})
		},
	}
}

func newExpensesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "List and manage expenses",
	}

	var from, to, category, minAmount, maxAmount string
	list := &cobra.Command{
		Use:   "list",
		Short: "List expenses, optionally filtered",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filters, err := parseFilters(from, to, category, minAmount, maxAmount)
			if err != nil {
				return err
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			s.Expenses.SetFilters(filters)
			st, _ := s.Expenses.Read()
			if _, err := s.Expenses.FetchFiltered(cmd.Context(), st.Filters); err != nil {
				_, status := s.Expenses.Read()
				return failure(err, status)
			}
			st, _ = s.Expenses.Read()
			return a.print(st.Expenses)
		},
	}
	list.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	list.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD)")
	list.Flags().StringVar(&category, "category", "", "category id")
	list.Flags().StringVar(&minAmount, "min", "", "minimum amount")
	list.Flags().StringVar(&maxAmount, "max", "", "maximum amount")

	var (
		e      expenses.NewExpense
		amount string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := decimal.NewFromString(amount)
			if err != nil {
				return errors.Wrapf(err, "invalid amount %q", amount)
			}
			e.Amount = d

			s, err := a.open()
			if err != nil {
				return err
			}
			created, err := s.Expenses.Create(cmd.Context(), e)
			if err != nil {
				_, status := s.Expenses.Read()
				return failure(err, status)
			}
			return a.print(created)
		},
	}
	add.Flags().StringVar(&amount, "amount", "", "amount")
	add.Flags().StringVar(&e.Description, "description", "", "description")
	add.Flags().StringVar(&e.Date, "date", "", "date (YYYY-MM-DD)")
	add.Flags().Int64Var(&e.Category, "category", 0, "category id")
	add.Flags().StringVar(&e.ExpenseType, "type", "need", "need, want or savings")
	add.Flags().StringVar(&e.PaymentMethod, "payment", "card", "payment method")
	_ = add.MarkFlagRequired("amount")

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid expense id %q", args[0])
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			if err := s.Expenses.Delete(cmd.Context(), id); err != nil {
				_, status := s.Expenses.Read()
				return failure(err, status)
			}
			_, err = fmt.Fprintf(a.out, "Deleted expense %d\n", id)
			return err
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show spending totals and trends",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			result, err := s.Expenses.FetchStats(cmd.Context())
			if err != nil {
				_, status := s.Expenses.Read()
				return failure(err, status)
			}
			return a.print(result)
		},
	}

	cmd.AddCommand(list, add, remove, stats)
	return cmd
}

func parseFilters(from, to, category, minAmount, maxAmount string) (expenses.Filters, error) {
	var f expenses.Filters
	if from != "" {
		f.StartDate = &from
	}
	if to != "" {
		f.EndDate = &to
	}
	if category != "" {
		id, err := strconv.ParseInt(category, 10, 64)
		if err != nil {
			return f, errors.Wrapf(err, "invalid category id %q", category)
		}
		f.Category = &id
	}
	for _, bound := range []struct {
		raw string
		dst **decimal.Decimal
	}{{minAmount, &f.MinAmount}, {maxAmount, &f.MaxAmount}} {
		if bound.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(bound.raw)
		if err != nil {
			return f, errors.Wrapf(err, "invalid amount %q", bound.raw)
		}
		*bound.dst = &d
	}
	return f, nil
}

func newCategoriesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Show categories, groups and allocation stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			if _, err := s.Categories.FetchAll(cmd.Context()); err != nil {
				_, status := s.Categories.Read()
				return failure(err, status)
			}
			if _, err := s.Categories.FetchGroups(cmd.Context()); err != nil {
				_, status := s.Categories.Read()
				return failure(err, status)
			}
			if _, err := s.Categories.FetchStats(cmd.Context()); err != nil {
				_, status := s.Categories.Read()
				return failure(err, status)
			}
			st, _ := s.Categories.Read()
			return a.print(st)
		},
	}
	return cmd
}

func newTemplatesCommand(a *app) *cobra.Command {
	var query, templateType string
	cmd := &cobra.Command{
		Use:   "templates [id]",
		Short: "Browse budget templates; with an id, show one template and its allocations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return errors.Wrapf(err, "invalid template id %q", args[0])
				}
				if _, err := s.Templates.FetchByID(cmd.Context(), id); err != nil {
					_, status := s.Templates.Read()
					return failure(err, status)
				}
				if _, err := s.Templates.FetchCategories(cmd.Context(), id); err != nil {
					_, status := s.Templates.Read()
					return failure(err, status)
				}
				st, _ := s.Templates.Read()
				return a.print(struct {
					Template   *templates.Template          `json:"template"`
					Categories []templates.TemplateCategory `json:"categories"`
				}{st.Current, st.TemplateCategories})
			}

			var p templates.SearchParams
			if query != "" {
				p.Query = &query
			}
			if templateType != "" {
				p.TemplateType = &templateType
			}
			if _, err := s.Templates.Search(cmd.Context(), p); err != nil {
				_, status := s.Templates.Read()
				return failure(err, status)
			}
			st, _ := s.Templates.Read()
			return a.print(st.Templates)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "text to search for")
	cmd.Flags().StringVar(&templateType, "type", "", "template type")
	return cmd
}

func newChatCommand(a *app) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the budgeting assistant in a new chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			session, err := s.Chatbot.CreateSession(cmd.Context(), title)
			if err != nil {
				_, status := s.Chatbot.Read()
				return failure(err, status)
			}
			reply, err := s.Chatbot.SendMessage(cmd.Context(), session.ID, args[0])
			if err != nil {
				_, status := s.Chatbot.Read()
				return failure(err, status)
			}
			_, err = fmt.Fprintln(a.out, reply.BotResponse)
			return err
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "session title")
	return cmd
}
