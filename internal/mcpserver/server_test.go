package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/gloss/internal/courseservice"
	"github.com/starford/gloss/internal/testutil"
)

func testServer(t *testing.T) (*Server, *courseservice.Service) {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	svc := courseservice.NewService(store, db, courseservice.WithLogger(testutil.Logger()))
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "tokenize_sentence":
		result, err = srv.tokenizeSentence(ctx, req)
	case "strip_annotations":
		result, err = srv.stripAnnotations(ctx, req)
	case "classify_material":
		result, err = srv.classifyMaterial(ctx, req)
	case "load_curriculum":
		result, err = srv.loadCurriculum(ctx, req)
	case "list_courses":
		result, err = srv.listCourses(ctx, req)
	case "search_courses":
		result, err = srv.searchCourses(ctx, req)
	case "read_course":
		result, err = srv.readCourse(ctx, req)
	case "create_course":
		result, err = srv.createCourse(ctx, req)
	case "get_markup_contract":
		result, err = srv.getMarkupContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestTokenizeSentence(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "tokenize_sentence", map[string]interface{}{"sentence": "{{[went/go/verb] home"})
	var res tokenizeResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.Clean != "went home" || len(res.Issues) != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Tokens) < 2 || res.Tokens[1].Type != "verb" || res.Tokens[1].Note != "go" {
		t.Errorf("tokens = %+v", res.Tokens)
	}
}

func TestTokenizeSentence_MissingArgument(t *testing.T) {
	srv, _ := testServer(t)
	if r := callTool(t, srv, "tokenize_sentence", map[string]interface{}{}); !r.IsError {
		t.Error("expected error for missing sentence")
	}
}

func TestStripAnnotations(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "strip_annotations", map[string]interface{}{"sentence": "(({[He/주어]   went})) <b>home</b>."})
	if got := resultText(r); got != "He went home." {
		t.Errorf("strip = %q", got)
	}
}

func TestClassifyMaterial(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "classify_material", map[string]interface{}{
		"material": `{"title":"2과 워크북","sentences":["She [left/leave/verb] early."]}`,
	})
	var res classifyResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.Kind != "workbook" || res.Title != "2과 워크북" || res.Problems != "" {
		t.Errorf("result = %+v", res)
	}

	r = callTool(t, srv, "classify_material", map[string]interface{}{"material": `{"title":"empty","type":"variant"}`})
	res = classifyResult{}
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.Kind != "variant" || res.Problems == "" {
		t.Errorf("empty variant not linted: %+v", res)
	}
}

func TestLoadCurriculum(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "load_curriculum", map[string]interface{}{"curriculum": `"[{\"title\":\"Intro\"}]"`})
	text := resultText(r)
	if !strings.Contains(text, `"title": "Intro"`) {
		t.Errorf("double-encoded curriculum not loaded: %s", text)
	}
}

func TestCreateReadAndListCourses(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_course", map[string]interface{}{
		"path":    "basics.json",
		"content": testutil.SampleCourse,
	})
	if got := resultText(r); got != "created: basics.json (2 weeks, 4 materials)" {
		t.Errorf("create result = %q", got)
	}

	r = callTool(t, srv, "create_course", map[string]interface{}{"path": "basics.json", "content": "{}"})
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("duplicate create = %q", resultText(r))
	}

	r = callTool(t, srv, "read_course", map[string]interface{}{"path": "basics.json"})
	var c courseservice.CourseDetail
	if err := json.Unmarshal([]byte(resultText(r)), &c); err != nil {
		t.Fatal(err)
	}
	if c.Title != "Reading Basics" || len(c.Materials) != 4 {
		t.Errorf("course = %+v", c)
	}

	r = callTool(t, srv, "list_courses", map[string]interface{}{"kind": "variant"})
	if !strings.Contains(resultText(r), `"total": 1`) {
		t.Errorf("list = %s", resultText(r))
	}

	r = callTool(t, srv, "search_courses", map[string]interface{}{"query": "apple"})
	if !strings.Contains(resultText(r), "basics.json") {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestReadCourseMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_course", map[string]interface{}{"path": "nope.json"})
	if !r.IsError || resultText(r) != "not found: nope.json" {
		t.Errorf("missing course = %q", resultText(r))
	}
}

func TestMarkupContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_markup_contract", map[string]interface{}{})
	if resultText(r) != MarkupGrammar {
		t.Error("contract tool does not return the grammar")
	}

	contents, err := srv.readGrammarResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != grammarURI || tc.Text != MarkupGrammar {
		t.Errorf("resource = %+v", contents[0])
	}
}
