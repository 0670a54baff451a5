// internal/report/report.go
// Package report writes run results as JSON and as JUnit XML for CI.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/beevik/etree"
	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/pagekit/internal/scenario"
)

const suiteName = "pagekit"

// WriteJSON encodes rep as indented JSON.
func WriteJSON(w io.Writer, rep scenario.Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// JUnit builds the JUnit XML document for rep. Failed scenarios become
// <failure> elements and scenarios that never reached a verdict become
// <error> elements.
func JUnit(rep scenario.Report) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", suiteName)
	suite.CreateAttr("id", rep.RunID)
	suite.CreateAttr("tests", strconv.Itoa(len(rep.Results)))
	suite.CreateAttr("failures", strconv.Itoa(rep.Count(scenario.StatusFailed)))
	suite.CreateAttr("errors", strconv.Itoa(rep.Count(scenario.StatusError)))
	suite.CreateAttr("time", seconds(rep.Duration.Seconds()))
	if !rep.StartedAt.IsZero() {
		suite.CreateAttr("timestamp", rep.StartedAt.UTC().Format("2006-01-02T15:04:05"))
	}

	for _, res := range rep.Results {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", res.Name)
		tc.CreateAttr("classname", suiteName+"."+res.Name)
		tc.CreateAttr("time", seconds(res.Duration.Seconds()))

		var tag string
		switch res.Status {
		case scenario.StatusFailed:
			tag = "failure"
		case scenario.StatusError:
			tag = "error"
		default:
			continue
		}
		el := tc.CreateElement(tag)
		el.CreateAttr("message", res.Error)
		if res.Kind != "" {
			el.CreateAttr("type", string(res.Kind))
		}
		el.SetText(res.Error)
		if res.SessionID != "" {
			tc.CreateElement("system-out").SetText("session " + res.SessionID)
		}
	}
	doc.Indent(2)
	return doc
}

// WriteJUnit encodes rep as JUnit XML.
func WriteJUnit(w io.Writer, rep scenario.Report) error {
	if _, err := JUnit(rep).WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode junit report: %w", err)
	}
	return nil
}

// WriteFiles writes the JSON and JUnit reports to the paths that are set.
func WriteFiles(rep scenario.Report, jsonPath, junitPath string) error {
	if jsonPath != "" {
		if err := writeFile(jsonPath, func(w io.Writer) error { return WriteJSON(w, rep) }); err != nil {
			return err
		}
	}
	if junitPath != "" {
		if err := writeFile(junitPath, func(w io.Writer) error { return WriteJUnit(w, rep) }); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close report file %s: %w", path, cerr)
		}
	}()
	return write(f)
}

func seconds(s float64) string { return strconv.FormatFloat(s, 'f', 3, 64) }
