package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cucumber/godog"

	"github.com/Nieto-/AnamorphosisMadeEasy/internal/output"
)

func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.StartServer("")
}

func (testCtx *TestContext) iStartTheServerWith(args string) error {
	return testCtx.StartServer(args)
}

func (testCtx *TestContext) iGET(endpoint string) error {
	return testCtx.doRequest(http.MethodGet, endpoint, nil, "")
}

func (testCtx *TestContext) iSendOPTIONSTo(endpoint string) error {
	return testCtx.doRequest(http.MethodOptions, endpoint, nil, "")
}

// iPOSTImageWithFields uploads a sample image as the "image" form file, with
// the table rows as extra form fields.
func (testCtx *TestContext) iPOSTImageWithFields(name, endpoint string, fields *godog.Table) error {
	data, err := os.ReadFile(filepath.Join(testCtx.ImageDir, name))
	if err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", name)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if fields != nil {
		for _, row := range fields.Rows {
			if len(row.Cells) != 2 {
				return errors.New("form field rows need a name and a value")
			}
			if err := mw.WriteField(row.Cells[0].Value, row.Cells[1].Value); err != nil {
				return err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return testCtx.doRequest(http.MethodPost, endpoint, &body, mw.FormDataContentType())
}

func (testCtx *TestContext) iPOSTImage(name, endpoint string) error {
	return testCtx.iPOSTImageWithFields(name, endpoint, nil)
}

func (testCtx *TestContext) iPOSTJSON(endpoint string, doc *godog.DocString) error {
	return testCtx.doRequest(http.MethodPost, endpoint, strings.NewReader(doc.Content), "application/json")
}

func (testCtx *TestContext) doRequest(method, endpoint string, body io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, testCtx.GetServerURL()+endpoint, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("response status %d, want %d\nBody: %s",
			testCtx.LastHTTPStatusCode, status, truncate(testCtx.LastHTTPBody))
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, want string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != want {
		return fmt.Errorf("header %s is %q, want %q", name, got, want)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldContain(name, want string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; !strings.Contains(got, want) {
		return fmt.Errorf("header %s is %q, want it to contain %q", name, got, want)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldBeValidJSON() error {
	if !json.Valid(testCtx.LastHTTPBody) {
		return fmt.Errorf("response is not valid JSON: %s", truncate(testCtx.LastHTTPBody))
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONShouldContain(field string) error {
	return jsonHasField(testCtx.LastHTTPBody, field)
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, want string) error {
	v, err := jsonField(testCtx.LastHTTPBody, field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("response field %s is %s, want %s", field, got, want)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldBeAPNGRecordingDPI(dpi float64) error {
	ppm, ok, err := output.ReadPNGDensity(bytes.NewReader(testCtx.LastHTTPBody))
	if err != nil {
		return fmt.Errorf("response is not a PNG: %w", err)
	}
	if !ok || ppm != output.PixelsPerMetre(dpi) {
		return fmt.Errorf("response PNG records %d px/m (present=%t), want %g dpi", ppm, ok, dpi)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !bytes.Contains(testCtx.LastHTTPBody, []byte(text)) {
		return fmt.Errorf("response does not contain %q: %s", text, truncate(testCtx.LastHTTPBody))
	}
	return nil
}

func (testCtx *TestContext) iSendSIGTERMToTheServer() error {
	return testCtx.SendSignalToServer(syscall.SIGTERM)
}

func (testCtx *TestContext) theServerShouldShutDownCleanly() error {
	if err := testCtx.WaitForServerExit(15 * time.Second); err != nil {
		return fmt.Errorf("server did not shut down cleanly: %w", err)
	}
	if testCtx.isServerHealthy() {
		return errors.New("server still answers after shutdown")
	}
	return nil
}

func truncate(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

// RegisterServerSteps registers server lifecycle and HTTP steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^I start the server with "([^"]*)"$`, testCtx.iStartTheServerWith)

	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I send OPTIONS to "([^"]*)"$`, testCtx.iSendOPTIONSTo)
	sc.Step(`^I POST "([^"]*)" to "([^"]*)" with fields:$`, testCtx.iPOSTImageWithFields)
	sc.Step(`^I POST "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTImage)
	sc.Step(`^I POST JSON to "([^"]*)":$`, testCtx.iPOSTJSON)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response header "([^"]*)" should contain "([^"]*)"$`, testCtx.theResponseHeaderShouldContain)
	sc.Step(`^the response should be valid JSON$`, testCtx.theResponseShouldBeValidJSON)
	sc.Step(`^the response JSON should contain "([^"]*)"$`, testCtx.theResponseJSONShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response should be a PNG recording (\d+(?:\.\d+)?) dpi$`, testCtx.theResponseShouldBeAPNGRecordingDPI)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)

	sc.Step(`^I send SIGTERM to the server$`, testCtx.iSendSIGTERMToTheServer)
	sc.Step(`^the server should shut down cleanly$`, testCtx.theServerShouldShutDownCleanly)
}
