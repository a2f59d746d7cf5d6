package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joelsmith11/locallibrary/internal/auth"
	"github.com/joelsmith11/locallibrary/internal/config"
	"github.com/joelsmith11/locallibrary/internal/database"
	"github.com/joelsmith11/locallibrary/internal/entities"
)

// CreateUserCommand creates an account from the command line.
type CreateUserCommand struct {
	Username     string
	Email        string
	Password     string
	Role         string
	DatabasePath string
	BcryptCost   int
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Login name (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password, at least 12 characters (defaults to $LIBRARY_PASSWORD)")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleBorrower), "Role: superuser, librarian or borrower")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the SQLite catalog database")
	fs.IntVar(&cmd.BcryptCost, "bcrypt-cost", 12, "bcrypt cost factor")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -username <name> -email <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a library account.\n\n")
		fmt.Fprintf(os.Stderr, "Roles:\n")
		fmt.Fprintf(os.Stderr, "  superuser   full access including /admin\n")
		fmt.Fprintf(os.Stderr, "  librarian   can list all loans, renew them and edit the catalog\n")
		fmt.Fprintf(os.Stderr, "  borrower    can see their own loans\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  LIBRARY_PASSWORD=... %s create-user -username anna -email anna@example.com -role librarian\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}
	if cmd.Password == "" {
		cmd.Password = os.Getenv("LIBRARY_PASSWORD")
	}
	if cmd.Password == "" {
		return fmt.Errorf("password not provided: use -password or LIBRARY_PASSWORD")
	}
	if !entities.UserRole(strings.ToLower(cmd.Role)).Valid() {
		return fmt.Errorf("invalid role %q", cmd.Role)
	}
	cmd.Role = strings.ToLower(cmd.Role)

	return nil
}

func (cmd *CreateUserCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	service := auth.NewService(db.Users, config.Auth{BcryptCost: cmd.BcryptCost})
	user, err := service.CreateUser(cmd.Username, cmd.Email, cmd.Password, entities.UserRole(cmd.Role))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Created %s %q (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}
