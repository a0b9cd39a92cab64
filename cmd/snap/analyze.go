package snap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcal-snap/internal/app"
	"github.com/saadjs/kcal-snap/internal/model"
)

var (
	analyzeJSON bool
	analyzeMIME string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Identify the food in an image file and estimate its nutrients",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readImageArg(cmd, args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
			food, err := a.Tracker.AnalyzeImage(cmd.Context(), data, analyzeMIME)
			if err != nil {
				return err
			}
			return printAnalyzedFood(cmd.OutOrStdout(), food, analyzeJSON)
		})
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output JSON")
	analyzeCmd.Flags().StringVar(&analyzeMIME, "mime", "", "Image content type (sniffed when empty)")
	rootCmd.AddCommand(analyzeCmd)
}

// readImageArg reads the image at path, or stdin for "-".
func readImageArg(cmd *cobra.Command, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read image from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	return data, nil
}

func printAnalyzedFood(w io.Writer, food model.AnalyzedFood, asJSON bool) error {
	if asJSON {
		b, err := json.MarshalIndent(food, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal analysis json: %w", err)
		}
		fmt.Fprintln(w, string(b))
		return nil
	}
	fmt.Fprintf(w, "Provider: %s\n", food.Provider)
	fmt.Fprintf(w, "Food: %s\n", food.Name)
	n := food.Nutrients
	fmt.Fprintf(w, "Calories: %.1f\nProtein: %.1fg\nCarbs: %.1fg\nFat: %.1fg\n", n.Calories, n.Protein, n.Carbs, n.Fat)
	return nil
}
