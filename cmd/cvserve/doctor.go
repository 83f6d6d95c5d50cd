package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/DigitumDei/cvserve/internal/assets"
	"github.com/DigitumDei/cvserve/internal/config"
	"github.com/DigitumDei/cvserve/internal/fileutil"
	"github.com/DigitumDei/cvserve/internal/hints"
	"github.com/DigitumDei/cvserve/internal/pdf"
)

const versionProbeTimeout = 5 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"` // "ready", "warnings", "errors"
	Chrome   chromeInfo  `json:"chrome"`
	Env      envInfo     `json:"environment"`
	Service  serviceInfo `json:"service"`
	System   systemInfo  `json:"system"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// serviceInfo holds the options check.
type serviceInfo struct {
	ConfigValid bool     `json:"config_valid"`
	WorkDir     string   `json:"workdir,omitempty"`
	Repository  string   `json:"repository,omitempty"`
	Styles      []string `json:"styles"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable    bool `json:"temp_writable"`
	WorkDirWritable bool `json:"workdir_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(flags *serverFlags, env *Environment) int {
	result := runDoctor(flags, env.Lookup)

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(flags *serverFlags, lookup config.LookupFunc) *doctorResult {
	noSandbox, _ := lookup(pdf.EnvNoSandbox)
	browserBin, _ := lookup(pdf.EnvBrowserBin)
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  noSandbox,
			BrowserBin: browserBin,
		},
	}

	opts := checkService(result, flags, lookup)
	checkStyles(result)
	checkChrome(result, opts)
	checkEnvironment(result, lookup)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkService loads the options the server would start with and reports
// where the CV would come from. It returns nil when the options are invalid.
func checkService(result *doctorResult, flags *serverFlags, lookup config.LookupFunc) *config.Options {
	opts, err := config.Load(flags.config, lookup)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid configuration: %v", err))
		return nil
	}
	if flags.workDir != "" {
		opts.WorkDir = flags.workDir
	}
	result.Service.ConfigValid = true
	result.Service.WorkDir = opts.WorkDir

	if repo, ok := lookup(config.EnvRepoURL); ok && repo != "" && repo != config.PlaceholderRepoURL {
		result.Service.Repository = "environment"
	} else if id, ok := lookup(config.EnvRepoURLSecretID); ok && id != "" {
		result.Service.Repository = "secret " + id
	} else {
		result.Warnings = append(result.Warnings,
			"No repository configured. Set REPO_URL or REPO_URL_SECRET_ID")
	}
	return opts
}

// checkStyles lists the embedded stylesheets and flags any the documents
// need but the binary lacks.
func checkStyles(result *doctorResult) {
	result.Service.Styles = assets.Styles()
	for _, name := range assets.Required {
		if !slices.Contains(result.Service.Styles, name) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Embedded stylesheet missing: %s", name))
		}
	}
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult, opts *config.Options) {
	chromePath := result.Env.BrowserBin
	if chromePath == "" && opts != nil {
		chromePath = opts.PDF.BrowserBin
	}

	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found. A managed Chromium will be downloaded on the first PDF request; install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	ctx, cancel := context.WithTimeout(context.Background(), versionProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, chromePath, "--version").Output() // #nosec G204 -- operator-supplied browser path
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, lookup config.LookupFunc) {
	result.Env.Container, result.Env.ContainerHint = isContainer(lookup)
	result.Env.CI = hints.IsInCI()

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(lookup config.LookupFunc) (bool, string) {
	if v, _ := lookup(config.EnvContainer); v == "1" {
		return true, config.EnvContainer + "=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn
	if v, _ := lookup("container"); v != "" {
		return true, "container=" + v
	}
	// Cloud Run and Cloud Functions
	if v, _ := lookup("K_SERVICE"); v != "" {
		return true, "K_SERVICE=" + v
	}
	if v, _ := lookup("KUBERNETES_SERVICE_HOST"); v != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory and the working copy's parent are
// writable.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	if writable(tmpDir) {
		result.System.TempWritable = true
	} else {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	}

	if result.Service.WorkDir == "" {
		return
	}
	parent := filepath.Dir(result.Service.WorkDir)
	if exists, err := fileutil.DirExists(parent); err != nil || !exists {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Working copy parent directory missing: %s", parent))
		return
	}
	if writable(parent) {
		result.System.WorkDirWritable = true
	} else {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Working copy parent directory not writable: %s", parent))
	}
}

func writable(dir string) bool {
	f, err := os.CreateTemp(dir, "cvserve-doctor-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "cvserve doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [WARN] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Service")
	if r.Service.ConfigValid {
		fmt.Fprintln(w, "  [OK] Configuration: valid")
		fmt.Fprintf(w, "  [OK] Working copy: %s\n", r.Service.WorkDir)
	} else {
		fmt.Fprintln(w, "  [ERROR] Configuration: invalid")
	}
	if len(r.Service.Styles) > 0 {
		fmt.Fprintf(w, "  [OK] Stylesheets: %s\n", strings.Join(r.Service.Styles, ", "))
	}
	if r.Service.Repository != "" {
		fmt.Fprintf(w, "  [OK] Repository: from %s\n", r.Service.Repository)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	if r.System.WorkDirWritable {
		fmt.Fprintln(w, "  [OK] Working copy directory: writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to serve")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
