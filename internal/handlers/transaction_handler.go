package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ecosync/backend/internal/metrics"
	"github.com/ecosync/backend/internal/models"
	"github.com/ecosync/backend/internal/services"
)

type TransactionHandler struct {
	transactionService services.TransactionService
}

func NewTransactionHandler(transactionService services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.transactionService.List(r.Context())
	if err != nil {
		writeServiceError(w, "ListTransactions", err, "Failed to list transactions")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(txs))
}

func (h *TransactionHandler) ListUserTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.transactionService.ListForUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, "ListUserTransactions", err, "Failed to list transactions")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(txs))
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.CreateTransactionRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	tx, err := h.transactionService.Create(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, "CreateTransaction", err, "Failed to create transaction")
		return
	}

	logrus.WithFields(logrus.Fields{"handler": "CreateTransaction", "transaction": tx.ID, "borrower": userID}).Info("transaction requested")
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(tx))
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateTransactionRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	tx, awarded, err := h.transactionService.Update(r.Context(), userID, chi.URLParam(r, "id"), &req)
	if err != nil {
		writeServiceError(w, "UpdateTransaction", err, "Failed to update transaction")
		return
	}
	if awarded {
		recordCompletion(tx)
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(tx))
}

func (h *TransactionHandler) CompleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	tx, awarded, err := h.transactionService.Complete(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "CompleteTransaction", err, "Failed to complete transaction")
		return
	}
	if awarded {
		recordCompletion(tx)
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(tx))
}

func (h *TransactionHandler) RateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.RateTransactionRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	tx, err := h.transactionService.Rate(r.Context(), userID, chi.URLParam(r, "id"), &req)
	if err != nil {
		writeServiceError(w, "RateTransaction", err, "Failed to rate transaction")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(tx))
}

func recordCompletion(tx *models.Transaction) {
	metrics.RecordCompletion(models.BorrowerCompletionPoints, models.LenderCompletionPoints)
	logrus.WithFields(logrus.Fields{
		"transaction": tx.ID,
		"borrower":    tx.BorrowerID,
		"lender":      tx.LenderID,
	}).Info("transaction completed, points awarded")
}
