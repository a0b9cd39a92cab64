// Package mcpserver exposes the tracker's command surface as MCP tools over
// stdio.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/saadjs/kcal-snap/internal/model"
	"github.com/saadjs/kcal-snap/internal/service"
)

// Server wraps the MCP server with the tracker tools.
type Server struct {
	mcp     *server.MCPServer
	tracker *service.Tracker
}

func New(tracker *service.Tracker, version string) *Server {
	s := &Server{tracker: tracker}

	s.mcp = server.NewMCPServer(
		"kcal-snap",
		version,
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("add_food",
		mcp.WithDescription("Log a food entry for today. Calories must be > 0; macros are grams."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Food name")),
		mcp.WithString("meal_type", mcp.Required(), mcp.Description("breakfast, lunch, dinner, or snack"),
			mcp.Enum("breakfast", "lunch", "dinner", "snack")),
		mcp.WithNumber("calories", mcp.Required(), mcp.Description("Energy in kcal")),
		mcp.WithNumber("protein", mcp.Description("Protein in grams")),
		mcp.WithNumber("carbs", mcp.Description("Carbohydrates in grams")),
		mcp.WithNumber("fat", mcp.Description("Fat in grams")),
		mcp.WithString("amount", mcp.Description("Free-form portion, e.g. \"1 plate\"")),
	), s.addFood)

	s.mcp.AddTool(mcp.NewTool("delete_food",
		mcp.WithDescription("Remove a food entry by id. Unknown ids are ignored."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Food entry id")),
	), s.deleteFood)

	s.mcp.AddTool(mcp.NewTool("add_weight_entry",
		mcp.WithDescription("Record a body weight observation."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date as YYYY-MM-DD")),
		mcp.WithNumber("weight", mcp.Required(), mcp.Description("Weight in kg, > 0")),
	), s.addWeightEntry)

	s.mcp.AddTool(mcp.NewTool("get_daily_totals",
		mcp.WithDescription("Today's calorie and macro totals against the daily energy target."),
	), s.getDailyTotals)

	s.mcp.AddTool(mcp.NewTool("get_food_log",
		mcp.WithDescription("All food entries in the order they were logged."),
	), s.getFoodLog)

	s.mcp.AddTool(mcp.NewTool("get_weight_series",
		mcp.WithDescription("Weight observations ordered by date."),
	), s.getWeightSeries)

	s.mcp.AddTool(mcp.NewTool("analyze_image",
		mcp.WithDescription("Identify the food in an image and estimate its nutrients. Nothing is logged."),
		mcp.WithString("image", mcp.Required(), mcp.Description("Base64-encoded image bytes")),
		mcp.WithString("mime_type", mcp.Description("Image content type; sniffed when omitted")),
	), s.analyzeImage)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// errorResult turns service errors into tool errors. Only validation and
// analysis messages are passed through verbatim.
func errorResult(err error) *mcp.CallToolResult {
	var ve *service.ValidationError
	var ae *service.AnalysisError
	switch {
	case errors.As(err, &ve):
		return mcp.NewToolResultError(ve.Error())
	case errors.As(err, &ae):
		return mcp.NewToolResultError(ae.Message)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("internal error: %v", err))
	}
}

func (s *Server) addFood(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mealRaw, err := req.RequireString("meal_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meal, err := model.ParseMealType(mealRaw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	calories, err := req.RequireFloat("calories")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.tracker.AddFood(model.FoodEntry{
		Name:     name,
		MealType: meal,
		Nutrients: model.NutrientProfile{
			Calories: calories,
			Protein:  req.GetFloat("protein", 0),
			Carbs:    req.GetFloat("carbs", 0),
			Fat:      req.GetFloat("fat", 0),
		},
		Amount: req.GetString("amount", ""),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(entry)
}

func (s *Server) deleteFood(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.tracker.DeleteFood(int64(id)); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %d", id)), nil
}

func (s *Server) addWeightEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dateRaw, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := model.ParseDate(dateRaw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	weight, err := req.RequireFloat("weight")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry := model.WeightEntry{Date: date, Weight: weight}
	if err := s.tracker.AddWeightEntry(entry); err != nil {
		return errorResult(err), nil
	}
	return jsonResult(entry)
}

func (s *Server) getDailyTotals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.tracker.Summary()
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(summary)
}

func (s *Server) getFoodLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.tracker.FoodLog()
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(items)
}

func (s *Server) getWeightSeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.tracker.WeightSeries()
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(items)
}

func (s *Server) analyzeImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	encoded, err := req.RequireString("image")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return mcp.NewToolResultError("image must be base64 encoded"), nil
	}
	food, err := s.tracker.AnalyzeImage(ctx, data, req.GetString("mime_type", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(food)
}
