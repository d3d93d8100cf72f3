package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mathesar-foundation/testdb/internal/output"
	"golang.org/x/term"
)

// Catppuccin Mocha color palette
var (
	colorMauve   = lipgloss.Color("#cba6f7") // Title
	colorBlue    = lipgloss.Color("#89b4fa") // Section headers
	colorGreen   = lipgloss.Color("#a6e3a1") // Commands, success
	colorYellow  = lipgloss.Color("#f9e2af") // Flags, warnings
	colorRed     = lipgloss.Color("#f38ba8") // Failures
	colorOverlay = lipgloss.Color("#6c7086") // Muted text
	colorBase    = lipgloss.Color("#1e1e2e") // Background
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorMauve).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			MarginTop(1)

	commandStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	flagStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	failureStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorOverlay)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Background(colorBase).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)
)

type lipglossStyler struct{}

func (lipglossStyler) Success(s string) string { return commandStyle.Render(s) }
func (lipglossStyler) Warning(s string) string { return warningStyle.Render(s) }
func (lipglossStyler) Failure(s string) string { return failureStyle.Render(s) }

// stylerFor colors status lines only when w is a terminal.
func stylerFor(w io.Writer) output.Styler {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return lipglossStyler{}
}

func showQuickReference(w io.Writer) {
	width := clampWidth(detectWidth())
	useUnicode := supportsUnicode()

	border := lipgloss.RoundedBorder()
	if !useUnicode {
		border = lipgloss.Border{
			Top:         "-",
			Bottom:      "-",
			Left:        "|",
			Right:       "|",
			TopLeft:     "+",
			TopRight:    "+",
			BottomLeft:  "+",
			BottomRight: "+",
		}
	}

	container := boxStyle.Copy().Border(border).Width(width)

	titleText := " TESTDB QUICK REFERENCE · Session Test Databases "
	titleRendered := gradientText(titleText, []lipgloss.Color{colorMauve, colorBlue})
	if !useUnicode {
		titleRendered = "TESTDB QUICK REFERENCE - Session Test Databases"
	}
	title := titleStyle.Copy().Width(width - 4).Align(lipgloss.Center).Render(titleRendered)

	lifecycle := renderSection(useUnicode, "🔷 LIFECYCLE", []string{
		bullet("testdb setup -v", "create + migrate the default test database"),
		bullet("testdb status -j", "show what the handle file records"),
		bullet("testdb teardown", "destroy it (failures are warnings)"),
	})

	inspect := renderSection(useUnicode, "🔶 INSPECT", []string{
		bullet("testdb fixtures --check", "fixture data paths"),
		bullet("testdb config get databases.default.name", "read one config value"),
		bullet("testdb config set runner.verbosity 2", "write the project config"),
	})

	flags := flagLegend(useUnicode)
	footer := footerLegend(useUnicode)

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		lifecycle,
		inspect,
		flags,
		footer,
	)

	fmt.Fprintln(w, container.Render(content))
}

func clampWidth(w int) int {
	if w < 72 {
		return 72
	}
	if w > 100 {
		return 100
	}
	return w
}

func detectWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	// fall back to environment or default
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if v, err := strconv.Atoi(cols); err == nil && v > 0 {
			return v
		}
	}
	return 80
}

func supportsUnicode() bool {
	termEnv := strings.ToLower(os.Getenv("TERM"))
	locale := strings.ToLower(strings.Join([]string{
		os.Getenv("LC_ALL"),
		os.Getenv("LC_CTYPE"),
		os.Getenv("LANG"),
	}, " "))
	if strings.Contains(termEnv, "dumb") {
		return false
	}
	return strings.Contains(locale, "utf-8") || strings.Contains(locale, "utf8")
}

func gradientText(text string, colors []lipgloss.Color) string {
	if len(colors) == 0 || !supportsUnicode() {
		return text
	}
	runes := []rune(text)
	segments := len(colors)
	if segments == 1 || len(runes) <= 1 {
		return lipgloss.NewStyle().Foreground(colors[0]).Render(text)
	}

	var b strings.Builder
	for i, r := range runes {
		idx := i * (segments - 1) / (len(runes) - 1)
		b.WriteString(lipgloss.NewStyle().Foreground(colors[idx]).Render(string(r)))
	}
	return b.String()
}

func bullet(command, desc string) string {
	return commandStyle.Render("  "+command) + mutedStyle.Render("  "+desc)
}

func renderSection(useUnicode bool, title string, lines []string) string {
	if !useUnicode {
		title = strings.TrimLeft(title, "🔷🔶 ")
	}
	header := sectionStyle.Render(title)
	body := strings.Join(lines, "\n")
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func flagLegend(useUnicode bool) string {
	prefix := "🚩 GLOBAL FLAGS"
	if !useUnicode {
		prefix = "FLAGS"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionStyle.Render(prefix),
		flagStyle.Render("  -j, --json")+mutedStyle.Render("              structured output"),
		flagStyle.Render("  -C, --project <dir>")+mutedStyle.Render("   override project path"),
		flagStyle.Render("  -v, --verbose")+mutedStyle.Render("           repeat for more detail"),
		flagStyle.Render("  --handle <path>")+mutedStyle.Render("         handle file"),
	)
}

func footerLegend(useUnicode bool) string {
	test := "go test -v ./..."
	help := "testdb <command> --help"
	if !useUnicode {
		return mutedStyle.Render("TESTS: " + test + "   HELP: " + help)
	}
	return lipgloss.JoinHorizontal(lipgloss.Left,
		mutedStyle.Render("TESTS: "), commandStyle.Render(test),
		mutedStyle.Render("   HELP: "), commandStyle.Render(help),
	)
}
