package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из domain, CLI не зависит от сервера) ---

// RunResponse — run из API.
type RunResponse struct {
	ID                string `json:"id"`
	RouteID           string `json:"route_id"`
	Name              string `json:"name"`
	Status            string `json:"status"`
	ScheduledDate     string `json:"scheduled_date"`
	StartTime         string `json:"start_time,omitempty"`
	EndTime           string `json:"end_time,omitempty"`
	MealCount         int    `json:"meal_count"`
	Notes             string `json:"notes,omitempty"`
	CurrentLocationID string `json:"current_location_id,omitempty"`
	CurrentStopNumber *int   `json:"current_stop_number,omitempty"`
	CreatedBy         string `json:"created_by"`
	CreatedAt         string `json:"created_at"`
}

// Stop возвращает номер текущей остановки или "-".
func (r RunResponse) Stop() string {
	if r.CurrentStopNumber == nil {
		return "-"
	}
	return strconv.Itoa(*r.CurrentStopNumber)
}

// Date возвращает дату выезда без времени.
func (r RunResponse) Date() string {
	if len(r.ScheduledDate) >= 10 {
		return r.ScheduledDate[:10]
	}
	return r.ScheduledDate
}

// TeamMemberResponse — участник команды.
type TeamMemberResponse struct {
	RunID    string `json:"run_id"`
	UserID   string `json:"user_id"`
	JoinedAt string `json:"joined_at"`
}

// RequestResponse — запрос friend'а.
type RequestResponse struct {
	ID               string `json:"id"`
	FriendID         string `json:"friend_id"`
	LocationID       string `json:"location_id"`
	RunID            string `json:"run_id,omitempty"`
	Description      string `json:"description"`
	Status           string `json:"status"`
	DeliveryAttempts int    `json:"delivery_attempts"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// HistoryResponse — запись журнала статусов.
type HistoryResponse struct {
	Seq             int64  `json:"seq"`
	Status          string `json:"status"`
	Note            string `json:"note,omitempty"`
	UserID          string `json:"user_id"`
	ClientRequestID string `json:"client_request_id,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// StatusResultResponse — результат записи статуса.
type StatusResultResponse struct {
	Entry    HistoryResponse `json:"entry"`
	Request  RequestResponse `json:"request"`
	Replayed bool            `json:"replayed"`
}

// DeliveryResponse — запись о доставке на остановке.
type DeliveryResponse struct {
	ID             string `json:"id"`
	RunID          string `json:"run_id"`
	LocationID     string `json:"location_id"`
	MealsDelivered int    `json:"meals_delivered"`
	Notes          string `json:"notes,omitempty"`
	VisitedAt      string `json:"visited_at"`
}

// SightingResponse — встреча с friend.
type SightingResponse struct {
	ID         string `json:"id"`
	FriendID   string `json:"friend_id"`
	LocationID string `json:"location_id"`
	RunID      string `json:"run_id,omitempty"`
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// LocationResponse — остановка маршрута.
type LocationResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
	RouteOrder int    `json:"route_order"`
}

// ExpectedFriendResponse — кого ожидать на остановке.
type ExpectedFriendResponse struct {
	FriendID   string `json:"friend_id"`
	FriendName string `json:"friend_name"`
	LocationID string `json:"location_id"`
	LastSeenAt string `json:"last_seen_at"`
}

// StopContextResponse — остановка в контексте выполнения.
type StopContextResponse struct {
	Location        LocationResponse         `json:"location"`
	StopNumber      int                      `json:"stop_number"`
	ExpectedFriends []ExpectedFriendResponse `json:"expected_friends"`
	Requests        []RequestResponse        `json:"requests"`
	Delivery        *DeliveryResponse        `json:"delivery,omitempty"`
}

// ExecutionContextResponse — всё для устройства во время выезда.
type ExecutionContextResponse struct {
	Run              RunResponse           `json:"run"`
	Stops            []StopContextResponse `json:"stops"`
	CurrentStopIndex int                   `json:"current_stop_index"`
}

// PreparationResponse — набор для загрузки перед выездом.
type PreparationResponse struct {
	Run      RunResponse       `json:"run"`
	Requests []RequestResponse `json:"requests"`
	Supplies struct {
		Meals    int `json:"meals"`
		Utensils int `json:"utensils"`
		Napkins  int `json:"napkins"`
		Requests int `json:"requests"`
	} `json:"supplies"`
	TotalStops int `json:"total_stops"`
}

// ChangesResponse — дельта polling-синхронизации.
type ChangesResponse struct {
	Run               RunResponse        `json:"run"`
	UpdatedRequests   []RequestResponse  `json:"updated_requests"`
	RecentSightings   []SightingResponse `json:"recent_sightings"`
	UpdatedDeliveries []DeliveryResponse `json:"updated_deliveries"`
	Timestamp         string             `json:"timestamp"`
}

// --- Request types ---

// CreateRunRequest — создание run.
type CreateRunRequest struct {
	RouteID       string `json:"route_id"`
	ScheduledDate string `json:"scheduled_date"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
	MealCount     int    `json:"meal_count"`
	Notes         string `json:"notes,omitempty"`
}

// UpdateRunRequest — обновление run.
type UpdateRunRequest struct {
	RouteID       *string `json:"route_id,omitempty"`
	ScheduledDate *string `json:"scheduled_date,omitempty"`
	StartTime     *string `json:"start_time,omitempty"`
	EndTime       *string `json:"end_time,omitempty"`
	MealCount     *int    `json:"meal_count,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// CreateRequestRequest — новый запрос friend'а.
type CreateRequestRequest struct {
	FriendID    string `json:"friend_id"`
	LocationID  string `json:"location_id"`
	RunID       string `json:"run_id,omitempty"`
	Description string `json:"description"`
}

// StatusRequest — запись статуса.
type StatusRequest struct {
	Status          string `json:"status"`
	Note            string `json:"note,omitempty"`
	ClientRequestID string `json:"client_request_id,omitempty"`
}

// SightingRequest — встреча с friend.
type SightingRequest struct {
	FriendID        string `json:"friend_id"`
	LocationID      string `json:"location_id"`
	RunID           string `json:"run_id,omitempty"`
	Notes           string `json:"notes,omitempty"`
	ClientRequestID string `json:"client_request_id,omitempty"`
}

// DeliveryRequest — запись о доставке.
type DeliveryRequest struct {
	MealsDelivered int    `json:"meals_delivered"`
	Notes          string `json:"notes,omitempty"`
}

// ListRunsOpts — параметры фильтрации runs.
type ListRunsOpts struct {
	RouteID string
	Status  string
	From    string
	To      string
	Limit   int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

// APIError — ошибка, которую вернул сервер.
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для Outreach API.
type Client struct {
	baseURL    string
	token      string
	userID     string
	httpClient *http.Client
}

// ClientConfig — параметры подключения.
type ClientConfig struct {
	BaseURL string

	// Token — bearer токен. Если пуст, используется UserID (dev-режим сервера).
	Token  string
	UserID string
}

// NewClient создаёт клиент для API.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		userID:  cfg.UserID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Runs ---

// ListRuns возвращает список runs с фильтрацией.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.RouteID != "" {
		params.Set("route_id", opts.RouteID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.From != "" {
		params.Set("from", opts.From)
	}
	if opts.To != "" {
		params.Set("to", opts.To)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// CreateRun создаёт run.
func (c *Client) CreateRun(req CreateRunRequest) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs", req, &run)
	return &run, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+id, &run)
	return &run, err
}

// UpdateRun обновляет run.
func (c *Client) UpdateRun(id string, req UpdateRunRequest) (*RunResponse, error) {
	var run RunResponse
	err := c.doData(http.MethodPatch, "/api/v1/runs/"+id, req, &run)
	return &run, err
}

// RunAction выполняет переход: start, advance, retreat, complete, cancel.
func (c *Client) RunAction(id, action string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+id+"/"+action, nil, &run)
	return &run, err
}

// GetContext возвращает контекст выполнения.
func (c *Client) GetContext(id string) (*ExecutionContextResponse, error) {
	var ec ExecutionContextResponse
	err := c.get("/api/v1/runs/"+id+"/context", &ec)
	return &ec, err
}

// GetPreparation возвращает набор для загрузки.
func (c *Client) GetPreparation(id string) (*PreparationResponse, error) {
	var prep PreparationResponse
	err := c.get("/api/v1/runs/"+id+"/preparation", &prep)
	return &prep, err
}

// GetChanges возвращает дельту с момента since (RFC3339, может быть пустым).
func (c *Client) GetChanges(id, since string) (*ChangesResponse, error) {
	path := "/api/v1/runs/" + id + "/changes"
	if since != "" {
		path += "?" + url.Values{"since": {since}}.Encode()
	}
	var cs ChangesResponse
	err := c.get(path, &cs)
	return &cs, err
}

// RecordDelivery записывает доставку на остановке.
func (c *Client) RecordDelivery(runID, locationID string, req DeliveryRequest) (*DeliveryResponse, error) {
	var d DeliveryResponse
	err := c.doData(http.MethodPut, "/api/v1/runs/"+runID+"/deliveries/"+locationID, req, &d)
	return &d, err
}

// --- Team ---

// ListTeam возвращает команду выезда; первый — лидер.
func (c *Client) ListTeam(runID string) ([]TeamMemberResponse, error) {
	var team []TeamMemberResponse
	err := c.list("/api/v1/runs/"+runID+"/team", nil, &team)
	return team, err
}

// JoinTeam добавляет пользователя (пустой — текущего) в команду.
func (c *Client) JoinTeam(runID, userID string) (*TeamMemberResponse, error) {
	body := map[string]string{}
	if userID != "" {
		body["user_id"] = userID
	}
	var m TeamMemberResponse
	err := c.post("/api/v1/runs/"+runID+"/team", body, &m)
	return &m, err
}

// LeaveTeam удаляет пользователя из команды.
func (c *Client) LeaveTeam(runID, userID string) error {
	return c.delete("/api/v1/runs/" + runID + "/team/" + userID)
}

// --- Requests ---

// ListRunRequests возвращает запросы выезда в статусе status.
func (c *Client) ListRunRequests(runID, status string) ([]RequestResponse, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	var requests []RequestResponse
	err := c.list("/api/v1/runs/"+runID+"/requests", params, &requests)
	return requests, err
}

// CreateRequest создаёт запрос friend'а.
func (c *Client) CreateRequest(req CreateRequestRequest) (*RequestResponse, error) {
	var r RequestResponse
	err := c.post("/api/v1/requests", req, &r)
	return &r, err
}

// AppendStatus добавляет запись в журнал статусов.
func (c *Client) AppendStatus(requestID string, req StatusRequest) (*StatusResultResponse, error) {
	var res StatusResultResponse
	err := c.post("/api/v1/requests/"+requestID+"/status", req, &res)
	return &res, err
}

// GetHistory возвращает журнал статусов.
func (c *Client) GetHistory(requestID string) ([]HistoryResponse, error) {
	var history []HistoryResponse
	err := c.list("/api/v1/requests/"+requestID+"/history", nil, &history)
	return history, err
}

// GetAttempts возвращает попытки доставки.
func (c *Client) GetAttempts(requestID string) ([]HistoryResponse, error) {
	var attempts []HistoryResponse
	err := c.list("/api/v1/requests/"+requestID+"/attempts", nil, &attempts)
	return attempts, err
}

// --- Sightings ---

// RecordSighting записывает встречу с friend.
// С RunID запись идёт через выезд и проверяет маршрут.
func (c *Client) RecordSighting(req SightingRequest) (*SightingResponse, error) {
	path := "/api/v1/sightings"
	if req.RunID != "" {
		path = "/api/v1/runs/" + req.RunID + "/sightings"
	}
	var s SightingResponse
	err := c.post(path, req, &s)
	return &s, err
}

// ExpectedFriends возвращает, кого ожидать на маршруте.
func (c *Client) ExpectedFriends(routeID string) ([]ExpectedFriendResponse, error) {
	var expected []ExpectedFriendResponse
	err := c.list("/api/v1/routes/"+routeID+"/expected-friends", nil, &expected)
	return expected, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.userID != "":
		req.Header.Set("X-User-ID", c.userID)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return &APIError{
		Status:  resp.StatusCode,
		Code:    er.Error.Code,
		Message: er.Error.Message,
		Field:   er.Error.Field,
	}
}
