package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"spendsense/domain"
	"spendsense/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	flagIncome   float64
	flagExpenses float64
	flagSavings  float64
	flagItem     string
	flagCost     float64
	flagJSONFile string
	flagFormat   string
	flagOffline  bool
	flagAsk      []string
	flagTimeout  time.Duration
)

var errEvaluationFailed = errors.New("evaluation did not succeed")

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one planned purchase",
	Example: `  spendsense evaluate --income 5000 --expenses 1500 --savings 500 --item "Laptop" --cost 1000
  spendsense evaluate --json request.json
  cat request.json | spendsense evaluate --json -`,
	RunE: runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.Float64Var(&flagIncome, "income", 0, "Monthly income")
	f.Float64Var(&flagExpenses, "expenses", 0, "Fixed monthly expenses")
	f.Float64Var(&flagSavings, "savings", 0, "Monthly savings goal")
	f.StringVar(&flagItem, "item", "", "Purchase item description")
	f.Float64Var(&flagCost, "cost", 0, "Purchase cost")
	f.StringVar(&flagJSONFile, "json", "", "Read the request from a JSON file, or - for stdin")
	f.StringVarP(&flagFormat, "format", "o", "", "Output format: text or json (default text, json with --json)")
	f.BoolVar(&flagOffline, "offline", false, "Skip the remote explanation service")
	f.StringArrayVar(&flagAsk, "ask", nil, "Follow-up question about the result (repeatable)")
	f.DurationVar(&flagTimeout, "timeout", 30*time.Second, "Overall evaluation deadline")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	var raw map[string]any
	format := flagFormat
	if flagJSONFile != "" {
		raw, err = readRequest(flagJSONFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if format == "" {
			format = "json"
		}
	} else {
		raw = requestFromFlags(cmd)
	}
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown output format %q", format)
	}

	decisions, explanations := buildServices(cfg, log, flagOffline)

	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	defer cancel()

	session := domain.NewConversationSession(uuid.NewString())
	report := decisions.Evaluate(ctx, raw, session)

	out := cmd.OutOrStdout()
	if format == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprint(out, RenderReport(report))
	}

	if report.Status != domain.StatusSuccess {
		return errEvaluationFailed
	}

	for _, question := range flagAsk {
		answer := explanations.FollowUp(ctx, session, question)
		fmt.Fprint(out, RenderFollowUp(question, answer))
	}
	return nil
}

// requestFromFlags builds the request from the flags that were set, so that
// unset flags surface as missing fields.
func requestFromFlags(cmd *cobra.Command) map[string]any {
	f := cmd.Flags()
	raw := map[string]any{}
	if f.Changed("income") {
		raw["monthly_income"] = flagIncome
	}
	if f.Changed("expenses") {
		raw["fixed_expenses"] = flagExpenses
	}
	if f.Changed("savings") {
		raw["savings_goal"] = flagSavings
	}

	purchase := map[string]any{}
	if f.Changed("item") {
		purchase["item"] = flagItem
	}
	if f.Changed("cost") {
		purchase["cost"] = flagCost
	}
	if len(purchase) > 0 {
		raw["planned_purchase"] = purchase
	}
	return raw
}

func readRequest(path string, stdin io.Reader) (map[string]any, error) {
	var r io.Reader = stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open request: %w", err)
		}
		defer file.Close()
		r = file
	}

	var raw map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if raw == nil {
		return nil, errors.New("decode request: expected a JSON object")
	}
	return raw, nil
}
