package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joelsmith11/locallibrary/internal/config"
	"github.com/joelsmith11/locallibrary/internal/database"
	"github.com/joelsmith11/locallibrary/internal/database/users"
	"github.com/joelsmith11/locallibrary/internal/entities"
)

// ErrCatalogNotEmpty is returned when seeding a catalog that already has books.
var ErrCatalogNotEmpty = errors.New("catalog already contains books")

type seedCopy struct {
	Imprint string
	Status  entities.LoanStatus
	DueIn   int // days from today; 0 leaves due_back empty
}

type seedBook struct {
	Title    string
	Summary  string
	ISBN     string
	Language string
	Genres   []string
	Copies   []seedCopy
}

type seedAuthor struct {
	FirstName string
	LastName  string
	Born      string
	Died      string
	Books     []seedBook
}

var demoCatalog = []seedAuthor{
	{
		FirstName: "Frank", LastName: "Herbert", Born: "1920-10-08", Died: "1986-02-11",
		Books: []seedBook{{
			Title:    "Dune",
			Summary:  "A noble family is given stewardship of the desert planet Arrakis.",
			ISBN:     "9780441013593",
			Language: "English",
			Genres:   []string{"Science Fiction"},
			Copies: []seedCopy{
				{"Ace, 2005", entities.LoanStatusOnLoan, 12},
				{"Ace, 2005", entities.LoanStatusOnLoan, -3},
				{"Chilton, 1965", entities.LoanStatusAvailable, 0},
			},
		}},
	},
	{
		FirstName: "Jane", LastName: "Austen", Born: "1775-12-16", Died: "1817-07-18",
		Books: []seedBook{
			{
				Title:    "Emma",
				Summary:  "A young woman meddles in the romantic lives of her neighbours.",
				ISBN:     "9780141439587",
				Language: "English",
				Genres:   []string{"Fiction"},
				Copies: []seedCopy{
					{"Penguin Classics, 2003", entities.LoanStatusAvailable, 0},
					{"Penguin Classics, 2003", entities.LoanStatusReserved, 0},
				},
			},
			{
				Title:    "Persuasion",
				Summary:  "Anne Elliot meets again the naval officer she once refused.",
				ISBN:     "9780141439686",
				Language: "English",
				Genres:   []string{"Fiction"},
				Copies: []seedCopy{
					{"Penguin Classics, 2003", entities.LoanStatusMaintenance, 0},
				},
			},
		},
	},
	{
		LastName: "Herodotus",
		Books: []seedBook{{
			Title:    "The Histories",
			Summary:  "An account of the Greco-Persian Wars and the peoples involved in them.",
			ISBN:     "9780140449082",
			Language: "English",
			Genres:   []string{"History"},
			Copies: []seedCopy{
				{"Penguin, 2003", entities.LoanStatusOnLoan, 20},
			},
		}},
	},
	{
		FirstName: "Charles", LastName: "Baudelaire", Born: "1821-04-09", Died: "1867-08-31",
		Books: []seedBook{{
			Title:    "Les Fleurs du mal",
			Summary:  "A collection of poems on decadence, eroticism and the city.",
			ISBN:     "9782253007104",
			Language: "French",
			Genres:   []string{"Poetry"},
			Copies: []seedCopy{
				{"Livre de Poche, 1972", entities.LoanStatusAvailable, 0},
			},
		}},
	},
	{
		FirstName: "Ursula", LastName: "Le Guin", Born: "1929-10-21", Died: "2018-01-22",
		Books: []seedBook{{
			Title:    "A Wizard of Earthsea",
			Summary:  "A young mage must hunt down the shadow he released into the world.",
			ISBN:     "9780547722023",
			Language: "English",
			Genres:   []string{"Fantasy", "Fiction"},
			Copies: []seedCopy{
				{"Houghton Mifflin, 2012", entities.LoanStatusAvailable, 0},
				{"Parnassus, 1968", entities.LoanStatusOnLoan, 5},
			},
		}},
	},
}

// SeedResult counts the records created by Seed.
type SeedResult struct {
	Authors   int
	Books     int
	Instances int
}

// Seed fills an empty catalog with demo authors, books and copies. Copies
// that are on loan are assigned to borrower when one is given.
func Seed(db *database.Database, borrower *entities.User, today time.Time) (SeedResult, error) {
	var result SeedResult

	count, err := db.Catalog.CountBooks()
	if err != nil {
		return result, err
	}
	if count > 0 {
		return result, ErrCatalogNotEmpty
	}

	genres, err := db.Catalog.ListGenres()
	if err != nil {
		return result, err
	}
	genreIDs := make(map[string]uint, len(genres))
	for _, g := range genres {
		genreIDs[g.Name] = g.ID
	}

	languages, err := db.Catalog.ListLanguages()
	if err != nil {
		return result, err
	}
	languageIDs := make(map[string]uint, len(languages))
	for _, l := range languages {
		languageIDs[l.Name] = l.ID
	}

	for _, a := range demoCatalog {
		author := &entities.Author{
			FirstName:   a.FirstName,
			LastName:    a.LastName,
			DateOfBirth: parseSeedDate(a.Born),
			DateOfDeath: parseSeedDate(a.Died),
		}
		if err := db.Catalog.CreateAuthor(author); err != nil {
			return result, fmt.Errorf("failed to create author %s: %w", author.DisplayName(), err)
		}
		result.Authors++

		for _, b := range a.Books {
			book := &entities.Book{
				Title:    b.Title,
				AuthorID: &author.ID,
				Summary:  b.Summary,
				ISBN:     b.ISBN,
			}
			if id, ok := languageIDs[b.Language]; ok {
				book.LanguageID = &id
			}
			var ids []uint
			for _, name := range b.Genres {
				if id, ok := genreIDs[name]; ok {
					ids = append(ids, id)
				}
			}
			if err := db.Catalog.CreateBook(book, ids); err != nil {
				return result, fmt.Errorf("failed to create book %q: %w", b.Title, err)
			}
			result.Books++

			for _, c := range b.Copies {
				instance := &entities.BookInstance{
					BookID:  &book.ID,
					Imprint: c.Imprint,
					Status:  c.Status,
				}
				if c.DueIn != 0 {
					due := today.AddDate(0, 0, c.DueIn)
					instance.DueBack = &due
				}
				if c.Status == entities.LoanStatusOnLoan && borrower != nil {
					instance.BorrowerID = &borrower.ID
				}
				if err := db.Loans.CreateInstance(instance); err != nil {
					return result, fmt.Errorf("failed to create copy of %q: %w", b.Title, err)
				}
				result.Instances++
			}
		}
	}

	return result, nil
}

func parseSeedDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}

// SeedCommand loads the demo catalog into a database.
type SeedCommand struct {
	DatabasePath string
	Borrower     string
	DryRun       bool
}

func NewSeedCommand() *SeedCommand {
	return &SeedCommand{}
}

func (cmd *SeedCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the SQLite catalog database")
	fs.StringVar(&cmd.Borrower, "borrower", "", "Username to assign the on-loan copies to")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "List what would be created without writing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Load a small demo catalog into an empty database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s seed -db ./locallibrary.db -borrower anna\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *SeedCommand) Run() error {
	fmt.Println("Local Library Demo Catalog")
	fmt.Println("==========================")

	if cmd.DryRun {
		for _, a := range demoCatalog {
			for _, b := range a.Books {
				fmt.Printf("  %s: %s (%d copies)\n", a.LastName, b.Title, len(b.Copies))
			}
		}
		fmt.Println("\nDry run: nothing written.")
		return nil
	}

	absPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to resolve database path: %w", err)
	}
	fmt.Printf("Database: %s\n", absPath)

	db, err := database.NewDatabase(absPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	var borrower *entities.User
	if cmd.Borrower != "" {
		borrower, err = db.Users.GetByUsername(cmd.Borrower)
		if errors.Is(err, users.ErrNotFound) {
			return fmt.Errorf("borrower %q does not exist; create it with create-user first", cmd.Borrower)
		}
		if err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	result, err := Seed(db, borrower, today)
	if err != nil {
		return err
	}

	fmt.Printf("\nCreated %d authors, %d books and %d copies.\n", result.Authors, result.Books, result.Instances)
	return nil
}
