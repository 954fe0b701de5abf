package admincli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

type App struct {
	serverURL string
	client    *http.Client
	reader    *bufio.Reader
}

func NewApp(serverURL string) *App {
	return &App{
		serverURL: strings.TrimRight(serverURL, "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
		reader:    bufio.NewReader(os.Stdin),
	}
}

// Run prompts for the admin username and password and asks the server to
// create the bootstrap admin. The password is wiped before returning. The
// server refuses the request unless its user store is still empty.
func (a *App) Run(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter admin username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	msg, err := a.initAdmin(ctx, username, string(password))
	if err != nil {
		return err
	}

	fmt.Println(msg)
	return nil
}

type initAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type initAdminResponse struct {
	Msg    string `json:"msg"`
	Detail string `json:"detail"`
}

func (a *App) initAdmin(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(initAdminRequest{
		Username: username,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.serverURL+"/init-admin", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out initAdminResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("unexpected response from server: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server refused bootstrap: %s", out.Detail)
	}

	return out.Msg, nil
}
