package tooling

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type Credentials struct {
	LoginURL   string
	Username   string
	Password   string
	APIVersion string
}

type loginEnvelope struct {
	Body struct {
		Response struct {
			Result struct {
				ServerURL string `xml:"serverUrl"`
				SessionID string `xml:"sessionId"`
				UserID    string `xml:"userId"`
			} `xml:"result"`
		} `xml:"loginResponse"`
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

const loginTemplate = `<?xml version="1.0" encoding="utf-8"?>
<env:Envelope xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
<env:Body><n1:login xmlns:n1="urn:partner.soap.sforce.com"><n1:username>%s</n1:username><n1:password>%s</n1:password></n1:login></env:Body>
</env:Envelope>`

// Login выполняет SOAP-логин (partner API) и возвращает клиент,
// привязанный к инстансу орга.
func Login(ctx context.Context, httpClient *http.Client, cred Credentials) (*Client, error) {
	loginURL := strings.TrimRight(cred.LoginURL, "/") + "/services/Soap/u/" + cred.APIVersion

	body := fmt.Sprintf(loginTemplate, escapeXML(cred.Username), escapeXML(cred.Password))
	req, err := http.NewRequestWithContext(ctx, "POST", loginURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create login request failed: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "login")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read login response failed: %w", err)
	}

	var env loginEnvelope
	if err := xml.Unmarshal(buf, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("parse login response failed: %w", err)
	}

	if f := env.Body.Fault; f != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: f.Code, Message: f.String}
	}

	result := env.Body.Response.Result
	if result.SessionID == "" || result.ServerURL == "" {
		return nil, fmt.Errorf("login response has no session")
	}

	instanceURL, err := instanceOf(result.ServerURL)
	if err != nil {
		return nil, err
	}

	return New(httpClient, instanceURL, result.SessionID, cred.APIVersion), nil
}

// instanceOf отрезает путь от serverUrl: https://na1.salesforce.com/services/Soap/u/42.0/00D... -> https://na1.salesforce.com
func instanceOf(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid server url %q", serverURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
