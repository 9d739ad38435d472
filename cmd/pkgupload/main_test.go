package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nalgeon/be"
)

// При PKGUPLOAD_RUN_MAIN=1 тестовый бинарник работает как pkgupload.
func TestMain(m *testing.M) {
	if os.Getenv("PKGUPLOAD_RUN_MAIN") == "1" {
		os.Args = append([]string{"pkgupload"}, os.Args[1:]...)
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

type result struct {
	stdout string
	stderr string
	code   int
}

// lastLine возвращает последнюю непустую строку stderr - туда main пишет ошибку.
func (r result) lastLine() string {
	lines := strings.Split(strings.TrimRight(r.stderr, "\n"), "\n")
	return lines[len(lines)-1]
}

func runMain(t *testing.T, args []string, env ...string) result {
	t.Helper()
	cmd := exec.Command(os.Args[0], args...)
	cmd.Dir = t.TempDir() // без .env
	cmd.Env = append([]string{"PKGUPLOAD_RUN_MAIN=1", "PATH=" + os.Getenv("PATH")}, env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := result{stdout: stdout.String(), stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.code = exitErr.ExitCode()
		return res
	}
	be.Err(t, err, nil)
	return res
}

func orgEnv(url string) []string {
	return []string{
		"GIT_SHA=abc123",
		"SALESFORCE_URL=" + url,
		"SALESFORCE_USERNAME=ci@example.com",
		"SALESFORCE_PASSWORD=secret",
		"UPLOAD_POLL_INTERVAL=1ms",
	}
}

const (
	onePackage  = `{"totalSize":1,"done":true,"records":[{"Id":"033A","Name":"Acme","NamespacePrefix":"acme"}]}`
	twoPackages = `{"totalSize":2,"done":true,"records":[{"Id":"033A","Name":"Acme"},{"Id":"033B","Name":"Other"}]}`
	noPackages  = `{"totalSize":0,"done":true,"records":[]}`
)

// fakeOrg имитирует орг: query по MetadataPackage отдает packages, запрос на
// загрузку проходит по статусам statuses, последний повторяется.
type fakeOrg struct {
	URL      string
	packages string
	statuses []string

	posts atomic.Int32
	polls atomic.Int32
}

func newFakeOrg(t *testing.T, packages string, statuses ...string) *fakeOrg {
	t.Helper()
	org := &fakeOrg{packages: packages, statuses: statuses}
	srv := httptest.NewServer(http.HandlerFunc(org.serve))
	t.Cleanup(srv.Close)
	org.URL = srv.URL
	return org
}

func (org *fakeOrg) serve(w http.ResponseWriter, r *http.Request) {
	const tooling = "/services/data/v42.0/tooling"
	switch {
	case r.URL.Path == "/services/Soap/u/42.0":
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body>` +
			`<loginResponse><result><serverUrl>http://` + r.Host + `/services/Soap/u/42.0/00D</serverUrl>` +
			`<sessionId>SESSION</sessionId></result></loginResponse></soapenv:Body></soapenv:Envelope>`))
	case r.URL.Path == tooling+"/query/" && strings.Contains(r.URL.Query().Get("q"), "FROM MetadataPackageVersion"):
		w.Write([]byte(`{"totalSize":1,"done":true,"records":[{"Id":"04t000000000001","Name":"abc123"}]}`))
	case r.URL.Path == tooling+"/query/":
		w.Write([]byte(org.packages))
	case r.Method == "POST" && r.URL.Path == tooling+"/sobjects/PackageUploadRequest/":
		org.posts.Add(1)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"0HD000000000001","success":true,"errors":[]}`))
	case r.URL.Path == tooling+"/sobjects/PackageUploadRequest/0HD000000000001":
		n := int(org.polls.Add(1))
		w.Write([]byte(org.statuses[min(n, len(org.statuses))-1]))
	case r.URL.Path == tooling+"/sobjects/PackageUploadRequest/describe/":
		w.Write([]byte(`{"name":"PackageUploadRequest","fields":[{"name":"Id"},{"name":"Status"},{"name":"Errors"}]}`))
	default:
		http.NotFound(w, r)
	}
}

const (
	queued     = `{"Id":"0HD000000000001","Status":"QUEUED"}`
	inProgress = `{"Id":"0HD000000000001","Status":"IN_PROGRESS"}`
)

func TestMissingGitSHA(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unexpected", http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := runMain(t, nil,
		"SALESFORCE_URL="+srv.URL,
		"SALESFORCE_USERNAME=ci@example.com",
		"SALESFORCE_PASSWORD=secret",
	)
	be.Equal(t, res.code, 1)
	be.True(t, strings.Contains(res.stderr, "GIT_SHA env is required"))
	be.Equal(t, hits.Load(), int32(0))
}

func TestLoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body><soapenv:Fault>` +
			`<faultcode>INVALID_LOGIN</faultcode><faultstring>INVALID_LOGIN: Invalid username</faultstring>` +
			`</soapenv:Fault></soapenv:Body></soapenv:Envelope>`))
	}))
	defer srv.Close()

	res := runMain(t, nil, orgEnv(srv.URL)...)
	be.Equal(t, res.code, 1)
	be.Equal(t, res.lastLine(), "login failed: HTTP 500: INVALID_LOGIN: INVALID_LOGIN: Invalid username")
}

func TestUpload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		org := newFakeOrg(t, onePackage, queued, inProgress,
			`{"Id":"0HD000000000001","Status":"SUCCESS","MetadataPackageVersionId":"04t000000000001"}`)

		res := runMain(t, nil, orgEnv(org.URL)...)
		be.Equal(t, res.code, 0)
		be.Equal(t, org.polls.Load(), int32(3))
		be.Equal(t, strings.Count(res.stdout, "Status: "), 3)
		be.True(t, strings.Contains(res.stdout, "INSTALL URL: /packaging/installPackage.apexp?p0=04t000000000001\n"))
	})

	t.Run("error", func(t *testing.T) {
		org := newFakeOrg(t, onePackage, queued, inProgress,
			`{"Id":"0HD000000000001","Status":"ERROR","Errors":{"errors":[{"message":"Apex test failure"}]}}`)

		res := runMain(t, nil, orgEnv(org.URL)...)
		be.Equal(t, res.code, 1)
		be.Equal(t, res.lastLine(), `PACKAGE UPLOAD ERROR: status ERROR: {"errors":[{"message":"Apex test failure"}]}`)
		be.True(t, !strings.Contains(res.stdout, "INSTALL URL"))
	})

	t.Run("missing_status", func(t *testing.T) {
		org := newFakeOrg(t, onePackage, queued, `{"Id":"0HD000000000001"}`, inProgress)

		res := runMain(t, nil, orgEnv(org.URL)...)
		be.Equal(t, res.code, 1)
		be.Equal(t, org.polls.Load(), int32(2))
		be.Equal(t, res.lastLine(), "status not found on upload request 0HD000000000001")
	})

	t.Run("two_packages", func(t *testing.T) {
		org := newFakeOrg(t, twoPackages, queued)

		res := runMain(t, nil, orgEnv(org.URL)...)
		be.Equal(t, res.code, 1)
		be.Equal(t, org.posts.Load(), int32(0))
		be.Equal(t, org.polls.Load(), int32(0))
		be.Equal(t, res.lastLine(), "org should only have one package: found 2")
	})

	t.Run("no_packages", func(t *testing.T) {
		org := newFakeOrg(t, noPackages, queued)

		res := runMain(t, nil, orgEnv(org.URL)...)
		be.Equal(t, res.code, 1)
		be.Equal(t, org.posts.Load(), int32(0))
		be.Equal(t, res.lastLine(), "org should only have one package: found 0")
	})
}

func TestCheckOnly(t *testing.T) {
	t.Run("one_package", func(t *testing.T) {
		org := newFakeOrg(t, onePackage, queued)

		res := runMain(t, []string{"-n"}, orgEnv(org.URL)...)
		be.Equal(t, res.code, 0)
		be.Equal(t, org.posts.Load(), int32(0))
		be.Equal(t, res.stdout, "package: 033A Acme (namespace \"acme\")\n")
	})

	t.Run("two_packages", func(t *testing.T) {
		org := newFakeOrg(t, twoPackages, queued)

		res := runMain(t, []string{"-n"}, orgEnv(org.URL)...)
		be.Equal(t, res.code, 1)
		be.Equal(t, res.lastLine(), "org should only have one package: found 2")
	})
}

func TestDescribe(t *testing.T) {
	org := newFakeOrg(t, onePackage, queued)

	res := runMain(t, []string{"-describe", "PackageUploadRequest"}, orgEnv(org.URL)...)
	be.Equal(t, res.code, 0)
	be.Equal(t, org.posts.Load(), int32(0))
	be.Equal(t, res.stdout, "Id\nStatus\nErrors\n")
}
