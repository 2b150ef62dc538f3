package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/domain"
)

// PlankaService is the REST adapter for the kanban board. Every call
// authenticates with the configured admin credentials; all failures surface
// as errors with a readable message, callers decide what is fatal.
type PlankaService struct {
	baseURL    string
	boardID    string
	username   string
	password   string
	httpClient *http.Client
	cache      *BoardCache
}

func NewPlankaService(cfg *config.Config) *PlankaService {
	return &PlankaService{
		baseURL:    strings.TrimRight(cfg.PlankaBaseURL, "/"),
		boardID:    cfg.PlankaBoardID,
		username:   cfg.PlankaAdminUsername,
		password:   cfg.PlankaAdminPassword,
		httpClient: &http.Client{Timeout: config.PlankaTimeout},
		cache:      NewBoardCache(config.BoardCacheDuration),
	}
}

type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Card struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	ListID             string     `json:"listId"`
	DueDate            *time.Time `json:"dueDate"`
	IsDueDateCompleted bool       `json:"isDueDateCompleted"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type CardLabel struct {
	ID      string `json:"id"`
	CardID  string `json:"cardId"`
	LabelID string `json:"labelId"`
}

type CardMembership struct {
	CardID string `json:"cardId"`
	UserID string `json:"userId"`
}

type AttachmentInfo struct {
	ID     string `json:"id"`
	CardID string `json:"cardId"`
	Name   string `json:"name"`
}

type BoardUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// BoardSnapshot is the full board state as returned by a single board fetch.
type BoardSnapshot struct {
	Lists           []List
	Labels          []Label
	Cards           []Card
	CardMemberships []CardMembership
	CardLabels      []CardLabel
	Attachments     []AttachmentInfo
}

// CardInput is the payload for card creation.
type CardInput struct {
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Position           int        `json:"position"`
	DueDate            *time.Time `json:"dueDate,omitempty"`
	IsDueDateCompleted bool       `json:"isDueDateCompleted"`
}

// CardPatch updates a subset of card fields.
type CardPatch struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	ListID      *string    `json:"listId,omitempty"`
	Position    *int       `json:"position,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

type itemResponse struct {
	Item     json.RawMessage `json:"item"`
	Included struct {
		Lists           []List           `json:"lists"`
		Labels          []Label          `json:"labels"`
		Cards           []Card           `json:"cards"`
		CardMemberships []CardMembership `json:"cardMemberships"`
		CardLabels      []CardLabel      `json:"cardLabels"`
		Attachments     []AttachmentInfo `json:"attachments"`
		Users           []BoardUser      `json:"users"`
	} `json:"included"`
}

// AccessToken authenticates as the configured admin and returns a bearer token.
func (s *PlankaService) AccessToken(ctx context.Context) (string, error) {
	body, err := s.do(ctx, http.MethodPost, "/access-tokens", "", map[string]string{
		"emailOrUsername": s.username,
		"password":        s.password,
	})
	if err != nil {
		return "", fmt.Errorf("get access token: %w", err)
	}

	var resp struct {
		Item string `json:"item"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Item == "" {
		return "", fmt.Errorf("unexpected access token response")
	}
	return resp.Item, nil
}

// Board fetches the whole board with its included resources.
func (s *PlankaService) Board(ctx context.Context) (*BoardSnapshot, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.do(ctx, http.MethodGet, "/boards/"+s.boardID, token, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch board: %w", err)
	}

	var resp itemResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse board response: %w", err)
	}

	snap := &BoardSnapshot{
		Lists:           resp.Included.Lists,
		Labels:          resp.Included.Labels,
		Cards:           resp.Included.Cards,
		CardMemberships: resp.Included.CardMemberships,
		CardLabels:      resp.Included.CardLabels,
		Attachments:     resp.Included.Attachments,
	}
	s.cache.Set(snap.Lists, snap.Labels)
	return snap, nil
}

// Lists returns the board's lists (statuses), served from the cache when fresh.
func (s *PlankaService) Lists(ctx context.Context) ([]List, error) {
	if lists, _, ok := s.cache.Get(); ok {
		return lists, nil
	}
	snap, err := s.Board(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Lists, nil
}

// Labels returns the board's labels, served from the cache when fresh.
func (s *PlankaService) Labels(ctx context.Context) ([]Label, error) {
	if _, labels, ok := s.cache.Get(); ok {
		return labels, nil
	}
	snap, err := s.Board(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Labels, nil
}

// PriorityLabels filters the board labels down to priority labels.
func (s *PlankaService) PriorityLabels(ctx context.Context) ([]Label, error) {
	labels, err := s.Labels(ctx)
	if err != nil {
		return nil, err
	}
	var out []Label
	for _, l := range labels {
		if IsPriorityLabel(l.Name) {
			out = append(out, l)
		}
	}
	return out, nil
}

// CreateCard creates a card on the given list.
func (s *PlankaService) CreateCard(ctx context.Context, listID string, card CardInput) (*Card, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.do(ctx, http.MethodPost, "/lists/"+listID+"/cards", token, card)
	if err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}

	var resp itemResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Item == nil {
		return nil, fmt.Errorf("unexpected create card response")
	}
	var created Card
	if err := json.Unmarshal(resp.Item, &created); err != nil {
		return nil, fmt.Errorf("parse created card: %w", err)
	}
	return &created, nil
}

// Card fetches a single card.
func (s *PlankaService) Card(ctx context.Context, cardID string) (*Card, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.do(ctx, http.MethodGet, "/cards/"+cardID, token, nil)
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}

	var resp itemResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Item == nil {
		return nil, domain.ErrCardNotFound
	}
	var card Card
	if err := json.Unmarshal(resp.Item, &card); err != nil {
		return nil, fmt.Errorf("parse card: %w", err)
	}
	return &card, nil
}

// CardLabels returns the label assignments of a card.
func (s *PlankaService) CardLabels(ctx context.Context, cardID string) ([]CardLabel, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.do(ctx, http.MethodGet, "/cards/"+cardID, token, nil)
	if err != nil {
		return nil, fmt.Errorf("get card labels: %w", err)
	}

	var resp itemResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse card response: %w", err)
	}
	return resp.Included.CardLabels, nil
}

// CardAttachments returns the attachments of a card.
func (s *PlankaService) CardAttachments(ctx context.Context, cardID string) ([]AttachmentInfo, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.do(ctx, http.MethodGet, "/cards/"+cardID, token, nil)
	if err != nil {
		return nil, fmt.Errorf("get card attachments: %w", err)
	}

	var resp itemResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse card response: %w", err)
	}
	return resp.Included.Attachments, nil
}

// AddCardLabel attaches a board label to a card.
func (s *PlankaService) AddCardLabel(ctx context.Context, cardID, labelID string) error {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodPost, "/cards/"+cardID+"/labels", token, map[string]string{"labelId": labelID})
	if err != nil {
		return fmt.Errorf("add label to card: %w", err)
	}
	return nil
}

// RemoveCardLabel detaches a label from a card. Removing a label that is not
// on the card is a no-op.
func (s *PlankaService) RemoveCardLabel(ctx context.Context, cardID, labelID string) error {
	assigned, err := s.CardLabels(ctx, cardID)
	if err != nil {
		return err
	}
	found := false
	for _, cl := range assigned {
		if cl.LabelID == labelID {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodDelete, "/cards/"+cardID+"/labels/"+labelID, token, nil)
	if err != nil {
		return fmt.Errorf("remove label from card: %w", err)
	}
	return nil
}

// AssignCardMember adds a board user to a card.
func (s *PlankaService) AssignCardMember(ctx context.Context, cardID, userID string) error {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodPost, "/cards/"+cardID+"/memberships", token, map[string]string{"userId": userID})
	if err != nil {
		return fmt.Errorf("assign card member: %w", err)
	}
	return nil
}

// UploadAttachment uploads a file to a card as multipart form data.
func (s *PlankaService) UploadAttachment(ctx context.Context, cardID, name string, file io.Reader) error {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("create attachment form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("read attachment data: %w", err)
	}
	if err := form.WriteField("name", name); err != nil {
		return fmt.Errorf("write attachment name: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("finalize attachment form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/cards/"+cardID+"/attachments", &buf)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload attachment: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

// MoveCard moves a card to another list.
func (s *PlankaService) MoveCard(ctx context.Context, cardID, listID string) error {
	pos := 1
	return s.UpdateCard(ctx, cardID, CardPatch{ListID: &listID, Position: &pos})
}

// UpdateCard patches card fields.
func (s *PlankaService) UpdateCard(ctx context.Context, cardID string, patch CardPatch) error {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodPatch, "/cards/"+cardID, token, patch)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return nil
}

// DeleteCard removes a card from the board.
func (s *PlankaService) DeleteCard(ctx context.Context, cardID string) error {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodDelete, "/cards/"+cardID, token, nil)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

// DeleteAttachment removes an attachment.
func (s *PlankaService) DeleteAttachment(ctx context.Context, attachmentID string) error {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodDelete, "/attachments/"+attachmentID, token, nil)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// CreateUser creates a board account.
func (s *PlankaService) CreateUser(ctx context.Context, email, password, name, username string) (*BoardUser, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.do(ctx, http.MethodPost, "/users", token, map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
		"username": username,
	})
	if err != nil {
		return nil, fmt.Errorf("create board user: %w", err)
	}

	var resp itemResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Item == nil {
		return nil, fmt.Errorf("unexpected create user response")
	}
	var user BoardUser
	if err := json.Unmarshal(resp.Item, &user); err != nil {
		return nil, fmt.Errorf("parse created user: %w", err)
	}
	return &user, nil
}

// AddUserToBoard grants a board account editor access to the board.
func (s *PlankaService) AddUserToBoard(ctx context.Context, userID string) error {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, http.MethodPost, "/boards/"+s.boardID+"/memberships", token, map[string]string{
		"userId": userID,
		"role":   "editor",
	})
	if err != nil {
		return fmt.Errorf("add user to board: %w", err)
	}
	return nil
}

// FindUserByEmail looks up a board account by email, case-insensitively.
// Returns (nil, nil) when no account matches.
func (s *PlankaService) FindUserByEmail(ctx context.Context, email string) (*BoardUser, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := s.do(ctx, http.MethodGet, "/users", token, nil)
	if err != nil {
		return nil, fmt.Errorf("list board users: %w", err)
	}

	var resp struct {
		Items []BoardUser `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse users response: %w", err)
	}
	for _, u := range resp.Items {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

// VerifyPassword checks board credentials by attempting a token issue.
// A 401 means a wrong password, not an error.
func (s *PlankaService) VerifyPassword(ctx context.Context, email, password string) (bool, error) {
	payload, err := json.Marshal(map[string]string{
		"emailOrUsername": email,
		"password":        password,
	})
	if err != nil {
		return false, fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/access-tokens", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return false, nil
	default:
		return false, fmt.Errorf("verify password: status %d", resp.StatusCode)
	}
}

func (s *PlankaService) do(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}
