// Package shell implements the console's interactive command loop.
package shell

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/atinyakov/opsconsole/internal/client/api"
	"github.com/atinyakov/opsconsole/internal/client/listquery"
	"github.com/atinyakov/opsconsole/internal/models"
)

const helpText = `Available commands:
  login                     store the credential issued by the login flow
  whoami                    show the logged-in operator
  logout                    end the session
  payments                  fetch the current payments page
  filter <name> [value]     set a filter, or clear it when value is omitted
  search <text>             debounced search filter
  page <n>                  go to page n
  limit <n>                 set the page size
  sort <field> [asc|desc]   change the sort
  help                      show this help
  exit                      leave the shell`

// Session is the session controller.
type Session interface {
	WhoAmI(ctx context.Context) (*models.ProfileSnapshot, api.Outcome)
	Login(ctx context.Context, cred models.Credential) error
	Logout(ctx context.Context) api.LogoutCompleted
}

// Shell reads commands from in and writes results to out.
type Shell struct {
	session  Session
	payments *listquery.Query
	scanner  *bufio.Scanner
	out      *syncWriter
}

// syncWriter serializes writes from the command loop, the debounced
// search and the profile sweeper. It is never held while reading input.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

// New returns a Shell over the payments list served by fetcher. opts
// configure the payments query; debounced search results are printed
// as they arrive.
func New(session Session, fetcher listquery.PageFetcher, initial listquery.State, in io.Reader, out io.Writer, opts ...listquery.QueryOption) *Shell {
	s := &Shell{session: session, scanner: bufio.NewScanner(in), out: &syncWriter{w: out}}
	opts = append(opts, listquery.WithResultHandler(s.showPage))
	s.payments = listquery.NewQuery(fetcher, initial, opts...)
	return s
}

// Close cancels a pending debounced search.
func (s *Shell) Close() {
	s.payments.Close()
}

// Run executes commands until exit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		s.printf("opsconsole> ")
		if !s.scanner.Scan() {
			return s.scanner.Err()
		}
		if quit := s.Exec(ctx, s.scanner.Text()); quit {
			return nil
		}
	}
	return ctx.Err()
}

// Exec runs one command line. It reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	args := strings.Fields(strings.TrimSpace(line))
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "help":
		s.println(helpText)
	case "login":
		s.login(ctx)
	case "whoami":
		s.whoAmI(ctx)
	case "logout":
		res := s.session.Logout(ctx)
		if res.Warning {
			s.println("Warning: " + res.Message)
		} else {
			s.println(res.Message)
		}
	case "payments":
		s.showPage(s.payments.Fetch(ctx))
	case "filter":
		if len(args) < 2 {
			s.println("Usage: filter <name> [value]")
			return false
		}
		s.showPage(s.payments.SetFilter(ctx, args[1], strings.Join(args[2:], " ")))
	case "search":
		s.payments.SetFilterDebounced(ctx, "search", strings.Join(args[1:], " "))
	case "page":
		n, ok := s.positive(args, "Usage: page <n>")
		if ok {
			s.showPage(s.payments.SetPage(ctx, n))
		}
	case "limit":
		n, ok := s.positive(args, "Usage: limit <n>")
		if ok {
			s.showPage(s.payments.SetLimit(ctx, n))
		}
	case "sort":
		if len(args) < 2 {
			s.println("Usage: sort <field> [asc|desc]")
			return false
		}
		order := listquery.DefaultSortOrder
		if len(args) > 2 {
			order = listquery.SortOrder(strings.ToLower(args[2]))
		}
		if !order.Valid() {
			s.println("Usage: sort <field> [asc|desc]")
			return false
		}
		s.showPage(s.payments.SetSort(ctx, args[1], order))
	case "exit":
		s.println("Bye")
		return true
	default:
		s.println("Unknown command. Type 'help' for a list of commands.")
	}
	return false
}

// ProfileExpired reloads the operator's profile after the cache sweep
// dropped it.
func (s *Shell) ProfileExpired(ctx context.Context) {
	s.println("\nProfile expired, reloading...")
	s.whoAmI(ctx)
}

func (s *Shell) login(ctx context.Context) {
	cred, err := PromptCredential(s.scanner, s.out)
	if err != nil {
		s.println("Login failed: " + err.Error())
		return
	}
	if err := s.session.Login(ctx, cred); err != nil {
		s.println("Login failed: " + err.Error())
		return
	}
	s.whoAmI(ctx)
}

func (s *Shell) whoAmI(ctx context.Context) {
	snap, out := s.session.WhoAmI(ctx)
	if snap == nil {
		s.render(out)
		return
	}
	name := snap.Name
	if name == "" {
		name = snap.Email
	}
	s.printf("Logged in as %s <%s> (%s)\n", name, snap.Email, snap.Role)
}

func (s *Shell) showPage(page *listquery.Page, out api.Outcome) {
	if page == nil {
		s.render(out)
		return
	}
	payments, err := listquery.DecodeItems[models.Payment](page)
	if err != nil {
		s.println("Error: " + err.Error())
		return
	}

	// rendered off-line so the table reaches out in a single write
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAMOUNT\tCURRENCY\tMETHOD\tSTATUS\tCREATED")
	for _, p := range payments {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\t%s\n", p.ID, p.Amount, p.Currency, p.Method, p.Status, p.CreatedAt)
	}
	_ = tw.Flush()
	pg := page.Pagination
	fmt.Fprintf(&buf, "page %d/%d, %d total\n", pg.Page, pg.TotalPages, pg.Total)
	_, _ = s.out.Write(buf.Bytes())
}

func (s *Shell) render(out api.Outcome) {
	switch o := out.(type) {
	case api.NeedsLogin:
		s.println("Not logged in: " + o.Message + ". Run 'login' to sign in.")
	case api.Forbidden:
		msg := "Access denied: " + o.Message
		if len(o.RequiredRoles) > 0 {
			msg += fmt.Sprintf(" (requires %s, you are %s)", strings.Join(o.RequiredRoles, " or "), o.UserRole)
		}
		s.println(msg)
	case api.ServerError, api.NetworkError:
		s.println(out.Result().Message + " (repeat the command to retry)")
	default:
		s.println("Error: " + out.Result().Message)
	}
}

func (s *Shell) positive(args []string, usage string) (int, bool) {
	if len(args) < 2 {
		s.println(usage)
		return 0, false
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 1 {
		s.println(usage)
		return 0, false
	}
	return n, true
}

func (s *Shell) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

func (s *Shell) println(line string) {
	fmt.Fprintln(s.out, line)
}
