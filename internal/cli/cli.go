// Package cli implements zpeople's command-line subcommands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zstore"
	"github.com/zarlcorp/zpeople/internal/erase"
	"github.com/zarlcorp/zpeople/internal/person"
	"github.com/zarlcorp/zpeople/internal/schema"
	"github.com/zarlcorp/zpeople/internal/session"
	"github.com/zarlcorp/zpeople/internal/settings"
	"github.com/zarlcorp/zpeople/internal/store"
	"golang.org/x/term"
)

// ErrNoRecords is returned by List when the session holds nothing.
var ErrNoRecords = errors.New("no records")

// SessionDir returns the session directory, honouring the settings
// override.
func SessionDir(s *settings.Settings) string {
	if s != nil && s.SessionDir != "" {
		return s.SessionDir
	}
	return session.Dir()
}

// ReadPassword prompts for a password on w and reads it without echo. When
// stdin is not a terminal (records piped into add) the controlling
// terminal is used.
func ReadPassword(prompt string, w io.Writer) ([]byte, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		tty, err := os.Open("/dev/tty")
		if err != nil {
			return nil, fmt.Errorf("read password: no terminal: %w", err)
		}
		defer tty.Close()
		fd = int(tty.Fd())
	}

	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return b, nil
}

// ReadNewPassword prompts for a new session password with confirmation.
func ReadNewPassword(w io.Writer) ([]byte, error) {
	pass, err := ReadPassword("new session password: ", w)
	if err != nil {
		return nil, err
	}
	confirm, err := ReadPassword("confirm password: ", w)
	if err != nil {
		zcrypto.Erase(pass)
		return nil, err
	}
	defer zcrypto.Erase(confirm)

	if string(pass) != string(confirm) {
		zcrypto.Erase(pass)
		return nil, fmt.Errorf("passwords do not match")
	}
	return pass, nil
}

// Session is an unlocked vault with its hydrated record store.
type Session struct {
	Vault   *session.Vault
	Records *store.Store
}

// OpenSession prompts for the session password and opens the records in
// dir. A session that does not exist yet asks for a new password.
func OpenSession(dir string, log *slog.Logger) (*Session, error) {
	var (
		pass []byte
		err  error
	)
	if session.IsNew(dir) {
		pass, err = ReadNewPassword(os.Stderr)
	} else {
		pass, err = ReadPassword("session password: ", os.Stderr)
	}
	if err != nil {
		return nil, err
	}
	defer zcrypto.Erase(pass)

	return openSession(dir, pass, log)
}

func openSession(dir string, pass []byte, log *slog.Logger) (*Session, error) {
	v, err := session.OpenDir(dir, pass)
	if err != nil {
		return nil, err
	}

	records := store.New(
		store.WithSlot(v.Slot(session.PersonKey)),
		store.WithLogger(log),
	)

	if err := records.Hydrate(); err != nil {
		// the session starts empty; the next write replaces the bad slot
		log.Warn("session records unreadable, starting empty", "err", err)
	}

	return &Session{Vault: v, Records: records}, nil
}

// Flush returns the first write-through failure since the last call.
// Mutators write synchronously, so failures are queued by the time they
// return.
func (s *Session) Flush() error {
	select {
	case err, ok := <-s.Records.Errors():
		if ok {
			return err
		}
	default:
	}
	return nil
}

// Close releases the store and locks the vault.
func (s *Session) Close() error {
	_ = s.Records.Close()
	return s.Vault.Close()
}

// List writes the records in insertion order.
func List(w io.Writer, records *store.Store, asJSON bool) error {
	ps := records.Persons()

	if asJSON {
		return printJSON(w, ps)
	}

	if len(ps) == 0 {
		return ErrNoRecords
	}

	for _, p := range ps {
		city := ""
		if a, ok := p.PrimaryAddress(); ok {
			city = a.City
		}
		fmt.Fprintf(w, "  %-36s %-28s %-30s %s\n", p.ID, p.Name(), p.Email, city)
	}
	return nil
}

// Show writes one record.
func Show(w io.Writer, records *store.Store, id string, asJSON bool) error {
	p, err := records.Get(id)
	if err != nil {
		return fmt.Errorf("show %s: %w", id, err)
	}

	if asJSON {
		return printJSON(w, p)
	}
	printPerson(w, p)
	return nil
}

// DecodeDetails reads person details as JSON and validates them with the
// create schema. Unknown fields are rejected.
func DecodeDetails(r io.Reader) (person.Details, error) {
	var d person.Details

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return person.Details{}, fmt.Errorf("decode details: %w", err)
	}

	if err := schema.Create.Validate(d); err != nil {
		return person.Details{}, err
	}
	return d, nil
}

// Add stores validated details and prints the new id.
func Add(w io.Writer, records *store.Store, d person.Details) error {
	p, err := records.Add(d)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	fmt.Fprintln(w, p.ID)
	return nil
}

// Erase deletes or depersonalizes the record with id and prints the
// summary.
func Erase(w io.Writer, records *store.Store, id string, action erase.Action) error {
	p, err := records.Get(id)
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, id, err)
	}

	if action == erase.Depersonalize && p.Anonymized() {
		fmt.Fprintf(w, "%s is already anonymized\n", id)
		return nil
	}

	result := erase.Execute(erase.Request{
		Person:  p,
		Action:  action,
		Records: records,
	})
	fmt.Fprintln(w, result.Summary())
	return result.Err()
}

// PrintFieldErrors writes a validation failure one field per line.
func PrintFieldErrors(w io.Writer, err error) bool {
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	for _, fe := range verr.Fields {
		fmt.Fprintf(w, "  %-22s %s\n", fe.Path+":", fe.Message)
	}
	return true
}

// CmdList lists the session's records.
func CmdList(dir string, log *slog.Logger, args []string) {
	withSession(dir, log, func(s *Session) error {
		err := List(os.Stdout, s.Records, hasFlag(args, "--json"))
		if errors.Is(err, ErrNoRecords) {
			fmt.Println("no records in this session")
			return nil
		}
		return err
	})
}

// CmdShow prints one record.
func CmdShow(dir string, log *slog.Logger, id string, args []string) {
	withSession(dir, log, func(s *Session) error {
		return Show(os.Stdout, s.Records, id, hasFlag(args, "--json"))
	})
}

// CmdAdd reads one person from stdin and stores it.
func CmdAdd(dir string, log *slog.Logger) {
	d, err := DecodeDetails(os.Stdin)
	if err != nil {
		if PrintFieldErrors(os.Stderr, err) {
			fail(errors.New("invalid person"))
		}
		fail(err)
	}

	withSession(dir, log, func(s *Session) error {
		return Add(os.Stdout, s.Records, d)
	})
}

// CmdDelete deletes a record by id.
func CmdDelete(dir string, log *slog.Logger, id string) {
	withSession(dir, log, func(s *Session) error {
		return Erase(os.Stdout, s.Records, id, erase.Delete)
	})
}

// CmdAnonymize depersonalizes a record by id.
func CmdAnonymize(dir string, log *slog.Logger, id string) {
	withSession(dir, log, func(s *Session) error {
		return Erase(os.Stdout, s.Records, id, erase.Depersonalize)
	})
}

// CmdEndSession removes the session directory and everything in it.
func CmdEndSession(dir string) {
	if err := session.End(dir); err != nil {
		fail(err)
	}
	fmt.Fprintln(os.Stderr, "session ended")
}

// CmdSettings prints the effective settings as hjson.
func CmdSettings(s *settings.Settings) {
	b, err := s.Encode()
	if err != nil {
		fail(fmt.Errorf("encode settings: %w", err))
	}
	os.Stdout.Write(b)
	fmt.Println()
}

func withSession(dir string, log *slog.Logger, fn func(*Session) error) {
	s, err := OpenSession(dir, log)
	if err != nil {
		if errors.Is(err, zstore.ErrWrongPassword) {
			fail(errors.New("wrong password"))
		}
		fail(err)
	}

	err = fn(s)
	if ferr := s.Flush(); ferr != nil && err == nil {
		err = fmt.Errorf("records changed but were not saved: %w", ferr)
	}
	if cerr := s.Close(); cerr != nil {
		log.Warn("close session", "err", cerr)
	}
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "zpeople: %v\n", err)
	os.Exit(1)
}

func printPerson(w io.Writer, p person.Person) {
	fmt.Fprintf(w, "  id:       %s\n", p.ID)
	fmt.Fprintf(w, "  name:     %s\n", p.Name())
	fmt.Fprintf(w, "  born:     %s %s\n", p.Birth.Date, p.Birth.Place)
	fmt.Fprintf(w, "  mother:   %s\n", p.MothersMaidenName)
	fmt.Fprintf(w, "  taj:      %s\n", p.TAJNumber)
	fmt.Fprintf(w, "  tax id:   %s\n", p.TaxID)
	fmt.Fprintf(w, "  email:    %s\n", p.Email)
	fmt.Fprintf(w, "  phone:    %s\n", p.PhoneNumber)
	for i, a := range p.Address {
		fmt.Fprintf(w, "  address:  %d. %s %s, %s %s\n", i+1, a.PostalCode, a.City, a.Street, a.HouseNumber)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if strings.EqualFold(a, flag) {
			return true
		}
	}
	return false
}
