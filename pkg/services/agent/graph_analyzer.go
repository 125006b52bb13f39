package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/prompts"
	"github.com/querypilot/querypilot-engine/pkg/services/progress"
)

const minVisualizableRows = 2

const insufficientDataReasoning = "Insufficient data for a meaningful visualization (fewer than 2 rows)."
const invalidGraphsReasoning = "Proposed charts were missing required axis bindings and were discarded."
const analysisFailedReasoning = "Visualization analysis failed; no charts suggested."

type graphAnalysisResult struct {
	ShouldVisualize bool               `json:"shouldVisualize"`
	Reasoning       string             `json:"reasoning"`
	Graphs          []models.GraphSpec `json:"graphs"`
}

// analyzeGraphs decides whether the result set should be charted. Fails
// soft: any LLM or parse error yields no visualization with a recoverable
// error note, never a workflow abort.
func (w *Workflow) analyzeGraphs(ctx context.Context, state *AgentState, tracker *progress.Tracker) *AgentState {
	delta := &AgentState{}
	defer tracker.Advance(ctx, progress.StepGraphAnalyzer, "Analyzed results for charts")

	if len(state.Rows) < minVisualizableRows {
		w.persistVisualization(ctx, state, delta, &graphAnalysisResult{
			ShouldVisualize: false,
			Reasoning:       insufficientDataReasoning,
		})
		return delta
	}

	analysis, err := w.runGraphAnalysis(ctx, state)
	if err != nil {
		w.logger.Warn("graph analysis failed",
			zap.String("thread_id", state.ThreadID.String()),
			zap.Error(err))
		delta.Errors = append(delta.Errors, "graph analysis failed: "+err.Error())
		analysis = &graphAnalysisResult{ShouldVisualize: false, Reasoning: analysisFailedReasoning}
	}

	analysis.Graphs = filterGraphs(analysis.Graphs)
	if analysis.ShouldVisualize && len(analysis.Graphs) == 0 {
		analysis.ShouldVisualize = false
		analysis.Reasoning = invalidGraphsReasoning
	}

	w.persistVisualization(ctx, state, delta, analysis)
	return delta
}

func (w *Workflow) runGraphAnalysis(ctx context.Context, state *AgentState) (*graphAnalysisResult, error) {
	client, err := w.llmFactory.CreateClient(state.LLMProvider)
	if err != nil {
		return nil, err
	}

	prompt := prompts.BuildGraphAnalysisPrompt(
		state.Query, state.SQL, len(state.Rows), summarizeColumns(state.Rows))

	response, err := client.GenerateResponse(ctx, prompt, "", 0.2)
	if err != nil {
		return nil, err
	}

	result, err := llm.ParseJSONResponse[graphAnalysisResult](response.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse graph analysis: %w", err)
	}
	return &result, nil
}

// filterGraphs drops proposals missing either axis field binding.
func filterGraphs(graphs []models.GraphSpec) []models.GraphSpec {
	valid := make([]models.GraphSpec, 0, len(graphs))
	for _, graph := range graphs {
		if graph.XAxis.Field == "" || graph.YAxis.Field == "" {
			continue
		}
		valid = append(valid, graph)
	}
	return valid
}

// persistVisualization stores the decision when charts survived filtering
// and folds the outcome into the node delta. Persistence failure degrades
// to no visualization.
func (w *Workflow) persistVisualization(ctx context.Context, state *AgentState, delta *AgentState, analysis *graphAnalysisResult) {
	delta.ShouldVisualize = analysis.ShouldVisualize
	delta.Graphs = analysis.Graphs

	if !analysis.ShouldVisualize || len(analysis.Graphs) == 0 {
		return
	}

	viz := &models.Visualization{
		InteractionID:   state.InteractionID,
		ShouldVisualize: true,
		Reasoning:       analysis.Reasoning,
		Graphs:          analysis.Graphs,
	}
	if err := w.vizRepo.Create(ctx, viz); err != nil {
		w.logger.Warn("failed to persist visualization",
			zap.String("interaction_id", state.InteractionID.String()),
			zap.Error(err))
		delta.Errors = append(delta.Errors, "failed to persist visualization: "+err.Error())
		delta.ShouldVisualize = false
		delta.Graphs = nil
		return
	}
	if err := w.interactionRepo.SetVisualizationID(ctx, state.InteractionID, viz.ID); err != nil {
		w.logger.Warn("failed to link visualization",
			zap.String("interaction_id", state.InteractionID.String()),
			zap.Error(err))
		delta.Errors = append(delta.Errors, "failed to link visualization: "+err.Error())
		return
	}
	delta.VisualizationID = &viz.ID
}
