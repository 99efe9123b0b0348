package prompts

// Default prompt templates. Each is a text/template rendered with Data.
const (
	// SystemPrompt frames every generation call.
	SystemPrompt = `You are a technical writer turning a data science notebook into a {{if .ReportType}}{{.ReportType}} {{end}}report.
Write concise, clear and professional prose grounded only in the facts you are given.
Never invent numbers, datasets or results that are not in the provided material.`

	// AnalysisPrompt asks for a structured reading of the notebook.
	AnalysisPrompt = `Read the notebook summary and excerpts below and extract the project's intent.

Notebook: {{.Title}}
{{.Summary}}

Outline:
{{.Outline}}

Code excerpt:
{{.Code}}

Printed output (excerpt):
{{.TextOutputs}}

Respond with ONLY a JSON object with these fields:
{
  "title": "a descriptive report title",
  "objectives": ["2-5 concrete project objectives"],
  "data_sources": ["where the data comes from"],
  "key_findings": ["2-5 findings backed by the output"],
  "models": ["model families that were evaluated"]
}`

	sectionRules = `
IMPORTANT: Write ONLY the content text. Do NOT include section headers (#, ##, ###) and do NOT repeat the section name as a heading.
Use plain paragraphs separated by blank lines. Stay on topic and avoid repetition.`

	AbstractPrompt = `Draft an academic abstract (4-6 sentences, {{.Words}}) for the report titled "{{.Title}}".
Cover explicitly:
- Dataset snapshot: {{.Dataset}}
- Purpose: {{or (join (first 2 .Objectives) "; ") "the project goal"}}
- Methodology: models evaluated ({{or (join (first 3 .Models) ", ") "the evaluated models"}})
- Headline result: {{.BestModel}}
Use crisp academic language and avoid bullet lists.
{{if .Prior}}Summarize consistently with these finished sections:
{{range $name, $text := .Prior}}[{{$name}}] {{$text}}
{{end}}{{end}}` + sectionRules

	ExecutiveSummaryPrompt = `Write an executive summary ({{.Words}}) of "{{.Title}}" for a non-specialist decision maker.
- What was done: {{or (join (first 2 .Objectives) "; ") "the project goal"}}
- Data used: {{.Dataset}}
- Outcome: {{.BestModel}}
- Key findings: {{or (join (first 3 .KeyFindings) "; ") "see results"}}
Lead with the business-relevant outcome.
{{if .Prior}}Stay consistent with these finished sections:
{{range $name, $text := .Prior}}[{{$name}}] {{$text}}
{{end}}{{end}}` + sectionRules

	IntroductionPrompt = `Write a polished introduction ({{.Words}}) for "{{.Title}}".
Structure:
1. Context and motivation for the problem.
2. Analytical scope covering {{.Dataset}} and data access ({{or (join .DataSources ", ") "file-based data"}}).
3. Preview of the approach using {{or (join (first 4 .Libraries) ", ") "standard Python tooling"}} and {{or (join (first 3 .Models) ", ") "the evaluated models"}}.
Reference notes:
{{.Outline}}` + sectionRules

	RelatedWorkPrompt = `Write a related work section ({{.Words}}) for "{{.Title}}".
Position the project against common approaches for this kind of problem, using the model families {{or (join .Models ", ") "used in the notebook"}} and tooling {{or (join (first 5 .Libraries) ", ") "used in the notebook"}}.
Do not cite specific papers by name unless they are listed here: {{or (join .References "; ") "none"}}.` + sectionRules

	MethodologyDataPrepPrompt = `Write the Data Preparation part of the methodology ({{.Words}}) for "{{.Title}}".
- Dataset scale: {{.Dataset}}; sources: {{or (join .DataSources ", ") "CSV file"}}
- Helper functions defined: {{or (join (first 8 .Functions) ", ") "none"}}
- Libraries: {{or (join (first 5 .Libraries) ", ") "standard tooling"}}
Describe loading, cleaning and transformation steps only.
Source snippets:
{{.Code}}` + sectionRules

	MethodologyModelingPrompt = `Write the Modeling Strategy part of the methodology ({{.Words}}) for "{{.Title}}".
- Model families: {{or (join .Models ", ") "the evaluated models"}}
- Complexity of the implementation: {{.Complexity}}
Explain why these models suit the problem. Do NOT discuss which model performed best.` + sectionRules

	MethodologyValidationPrompt = `Write the Validation part of the methodology ({{.Words}}) for "{{.Title}}".
Describe the evaluation design: data splitting, metrics used ({{or .Metrics "accuracy, ROC-AUC, recall, precision"}}) and how model selection was done.
Do NOT report the final numbers.` + sectionRules

	ImplementationPrompt = `Describe the implementation ({{.Words}}) of "{{.Title}}" as an internship deliverable.
- Tooling: {{or (join (first 6 .Libraries) ", ") "Python"}}
- Functions written: {{or (join (first 10 .Functions) ", ") "none"}}
- Implementation complexity: {{.Complexity}}
- Notebook scale: {{.Summary}}
Explain how the work was structured and what was built.` + sectionRules

	ResultsPrompt = `Present the quantitative findings ({{.Words}}) of "{{.Title}}".
- Compare model behaviour using these numbers: {{or .Metrics "no structured metrics were captured; describe the printed output qualitatively"}}
- Best-performing configuration: {{.BestModel}}
- Evidence volume: {{.Plots}} charts, {{.Tables}} tables, {{.Errors}} execution errors.
Printed output (excerpt):
{{.TextOutputs}}
Keep the tone analytic.` + sectionRules

	DiscussionPrompt = `Compose the discussion ({{.Words}}) for "{{.Title}}".
Address:
- Interpretation of the results, including {{.BestModel}}.
- Limitations evident from the work ({{or (join (first 3 .KeyFindings) "; ") "data and evaluation constraints"}}).
- Concrete improvement ideas (feature engineering, class weighting, richer data).
{{if .Prior}}Build on the finished sections:
{{range $name, $text := .Prior}}[{{$name}}] {{$text}}
{{end}}{{end}}Keep the tone evaluative.` + sectionRules

	RecommendationsPrompt = `Write recommendations ({{.Words}}) for stakeholders of "{{.Title}}".
Base them on the outcome ({{.BestModel}}) and findings ({{or (join (first 3 .KeyFindings) "; ") "see results"}}).
Cover deployment readiness, monitoring and next investments.
{{if .Prior}}Finished sections:
{{range $name, $text := .Prior}}[{{$name}}] {{$text}}
{{end}}{{end}}` + sectionRules

	LearningOutcomesPrompt = `Write the learning outcomes ({{.Words}}) of the intern who built "{{.Title}}".
Reflect on technical skills ({{or (join (first 5 .Libraries) ", ") "Python tooling"}}), modeling practice ({{or (join (first 3 .Models) ", ") "model evaluation"}}) and working habits.
Write in the first person.` + sectionRules

	ConclusionPrompt = `Write a decisive conclusion ({{.Words}}) for "{{.Title}}".
Include:
- Achievement relative to objectives ({{or (join (first 2 .Objectives) "; ") "the project goal"}}).
- Recap of the strongest model ({{.BestModel}}).
- Reflection on the evidence generated ({{.Plots}} visuals, {{.Tables}} tables).
{{if .Prior}}Stay consistent with:
{{range $name, $text := .Prior}}[{{$name}}] {{$text}}
{{end}}{{end}}The tone should be confident and forward-looking.` + sectionRules

	FutureWorkPrompt = `Write a future work section ({{.Words}}) for "{{.Title}}".
Propose research directions that follow from the findings ({{or (join (first 3 .KeyFindings) "; ") "see results"}}) and the limits of the current models ({{or (join .Models ", ") "the evaluated models"}}).` + sectionRules

	diagramRules = `
Generate ONLY valid Mermaid flowchart code. No explanations.
Start with the graph type (graph TD or graph LR), then nodes and connections.
Use ONLY simple syntax: node labels in [], arrows -->. NO styling, NO subgraphs.`

	DiagramArchitecturePrompt = `Create a Mermaid flowchart of the system architecture of "{{.Title}}".
Components: Data Input -> Processing ({{or (join (first 3 .Libraries) ", ") "Python"}}) -> Models ({{or (join (first 3 .Models) ", ") "analysis"}}) -> Output
Keep it to {{nodes .Detail "3-4" "5-7" "8-12"}} nodes.
Example:
graph TD
    A[Input] --> B[Process]
    B --> C[Output]` + diagramRules

	DiagramDataFlowPrompt = `Create a Mermaid flowchart of the data flow of "{{.Title}}".
Flow: {{or (join (first 1 .DataSources) "") "Data"}} -> Cleaning -> Transform -> Analysis -> Results
Keep it to {{nodes .Detail "3-4" "4-6" "7-10"}} nodes.
Example:
graph LR
    A[Input] --> B[Clean] --> C[Transform] --> D[Output]` + diagramRules

	DiagramProcessFlowPrompt = `Create a Mermaid flowchart of the process followed in "{{.Title}}".
Steps: Load Data -> Process ({{.CodeCells}} code steps) -> Evaluate -> Output
Keep it to {{nodes .Detail "3-4" "4-6" "7-10"}} nodes.{{if ne .Detail "minimal"}} Add one decision diamond if needed.{{end}}
Example:
graph TD
    A[Start] --> B[Process]
    B --> C{Valid?}
    C -->|Yes| D[Output]
    C -->|No| B` + diagramRules

	DiagramResultsOverviewPrompt = `Create a Mermaid diagram giving an overview of the results of "{{.Title}}".
Results: {{.Plots}} charts, {{.Tables}} tables{{if .Models}}, models: {{join (first 4 .Models) ", "}}{{end}}
Keep it to {{nodes .Detail "3" "3-5" "6-8"}} nodes branching from one main results node.
Example:
graph TD
    A[Results] --> B[Charts: {{.Plots}}]
    A --> C[Tables: {{.Tables}}]` + diagramRules
)
