package handlers

import (
	"net/http"
	"strconv"
	"time"

	"txguardian/internal/domain"

	"github.com/gin-gonic/gin"
)

type createTransactionRequest struct {
	Amount   float64 `json:"amount"`
	Vendor   string  `json:"vendor"`
	Category string  `json:"category"`
	Date     string  `json:"date"` // YYYY-MM-DD
}

type transactionResponse struct {
	ID           int64     `json:"id"`
	Amount       float64   `json:"amount"`
	Vendor       string    `json:"vendor"`
	Category     string    `json:"category"`
	Date         string    `json:"date"`
	Status       string    `json:"status"`
	ScreenReason string    `json:"screen_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toTransactionResponse(tx *domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:           tx.ID,
		Amount:       tx.Amount(),
		Vendor:       tx.Vendor,
		Category:     tx.Category,
		Date:         tx.TxDate.Format("2006-01-02"),
		Status:       string(tx.Status),
		ScreenReason: tx.ScreenReason,
		CreatedAt:    tx.CreatedAt,
		UpdatedAt:    tx.UpdatedAt,
	}
}

// CreateTransaction creates a pending transaction; screening runs in the
// background and the response always shows the pre-screening state.
func (h *Handler) CreateTransaction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createTransactionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	txDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	tx, err := h.Verifications.Create(c.Request.Context(), userID, req.Amount, req.Vendor, req.Category, txDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTransactionResponse(tx))
}

// GetTransaction returns one of the caller's transactions
func (h *Handler) GetTransaction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	tx, err := h.Verifications.Get(c.Request.Context(), txID)
	if err != nil {
		respondError(c, err)
		return
	}
	if tx.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}

	c.JSON(http.StatusOK, toTransactionResponse(tx))
}

// ListTransactions returns the caller's recent transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	txs, err := h.Verifications.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	c.JSON(http.StatusOK, gin.H{"transactions": out})
}

// RequestVerification returns the security questions for a blocked
// transaction, generating them via the oracle when needed. Grading context
// never leaves the server.
func (h *Handler) RequestVerification(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	txID, _, errDone := h.ownedTransactionID(c, userID)
	if errDone {
		return
	}

	challenge, err := h.Verifications.RequestVerification(c.Request.Context(), txID)
	if err != nil {
		respondError(c, err)
		return
	}

	questions := make([]string, 0, len(challenge.Questions))
	for _, q := range challenge.Questions {
		questions = append(questions, q.Text)
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge_id":     challenge.ID,
		"transaction_id":   challenge.TransactionID,
		"questions":        questions,
		"required_correct": challenge.RequiredCorrect,
	})
}

type submitAnswersRequest struct {
	Answers map[string]string `json:"answers"`
}

// SubmitAnswers grades the caller's answers to the active challenge
func (h *Handler) SubmitAnswers(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	txID, _, errDone := h.ownedTransactionID(c, userID)
	if errDone {
		return
	}

	var req submitAnswersRequest
	if err := c.BindJSON(&req); err != nil || len(req.Answers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answers are required"})
		return
	}

	result, err := h.Verifications.SubmitAnswers(c.Request.Context(), txID, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type approveRequest struct {
	ProviderRef *string `json:"provider_ref"`
}

// ApproveTransaction commits an eligible transaction to the ledger
func (h *Handler) ApproveTransaction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	txID, _, errDone := h.ownedTransactionID(c, userID)
	if errDone {
		return
	}

	var req approveRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
	}

	entry, err := h.Verifications.Approve(c.Request.Context(), txID, req.ProviderRef)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ledger_id":      entry.ID,
		"transaction_id": entry.TransactionID,
		"amount":         float64(entry.AmountCents) / 100,
		"vendor":         entry.Vendor,
		"category":       entry.Category,
		"date":           entry.TxDate.Format("2006-01-02"),
		"provider_ref":   entry.ProviderRef,
		"approved_at":    entry.ApprovedAt,
	})
}

// ownedTransactionID parses the :id param and checks the transaction
// belongs to the caller. Responds and reports done=true on failure.
func (h *Handler) ownedTransactionID(c *gin.Context, userID int64) (int64, *domain.Transaction, bool) {
	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return 0, nil, true
	}

	tx, err := h.Verifications.Get(c.Request.Context(), txID)
	if err != nil {
		respondError(c, err)
		return 0, nil, true
	}
	if tx.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return 0, nil, true
	}
	return txID, tx, false
}
