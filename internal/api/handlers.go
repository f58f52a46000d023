package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradege/stek-sub008/internal/casino"
	"github.com/tradege/stek-sub008/internal/games"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	specs := make([]games.GameSpec, 0, len(games.List()))
	for _, id := range games.List() {
		g, _ := games.Get(id)
		specs = append(specs, g.Spec())
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"games": specs})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req playRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.casino.Play(r.Context(), casino.PlayRequest{
		UserID:   userID,
		Game:     req.Game,
		Currency: req.Currency,
		Stake:    req.Stake,
		Params:   req.Params,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	result, hash, err := s.casino.VerifyRound(req.Game, req.ServerSeed, req.ClientSeed, req.Nonce, req.Params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, verifyResponse{ServerSeedHash: hash, Result: result})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req startSessionRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	view, err := s.casino.StartSession(r.Context(), casino.StartSessionRequest{
		UserID:    userID,
		Game:      req.Game,
		Currency:  req.Currency,
		Stake:     req.Stake,
		MineCount: req.MineCount,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, errBadBody)
		return
	}
	game := r.URL.Query().Get("game")

	view, err := s.casino.GetSession(r.Context(), userID, game, sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAdvanceSession(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, errBadBody)
		return
	}

	var req advanceSessionRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	view, err := s.casino.AdvanceSession(r.Context(), casino.AdvanceRequest{
		UserID:    userID,
		Game:      req.Game,
		SessionID: sessionID,
		Tile:      req.Tile,
		Direction: req.Direction,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCashOut(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, errBadBody)
		return
	}

	var req cashOutRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	view, err := s.casino.CashOut(r.Context(), userID, req.Game, sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetSeed(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	pair, err := s.casino.GetSeedInfo(r.Context(), userID, chi.URLParam(r, "game"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleSetClientSeed(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req setClientSeedRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.casino.SetClientSeed(r.Context(), userID, chi.URLParam(r, "game"), req.ClientSeed); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"client_seed": req.ClientSeed})
}

func (s *Server) handleRotateSeed(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	revealed, next, err := s.casino.RotateSeed(r.Context(), userID, chi.URLParam(r, "game"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rotateSeedResponse{
		Revealed: revealedSeed{
			ServerSeed:     revealed.ServerSeed,
			ServerSeedHash: revealed.ServerSeedHash,
			ClientSeed:     revealed.ClientSeed,
			Nonce:          revealed.Nonce,
		},
		Next: next,
	})
}

func (s *Server) handleListBets(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	bets, err := s.casino.ListBets(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"bets": bets})
}

func (s *Server) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req withdrawalRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	entry, err := s.casino.RequestWithdrawal(r.Context(), userID, req.Currency, req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, entry)
}

// handleDepositWebhook accepts confirmed deposit notifications from
// the payment processor. Redeliveries are safe: the transaction hash
// deduplicates the credit.
func (s *Server) handleDepositWebhook(w http.ResponseWriter, r *http.Request) {
	var req depositWebhookRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.casino.Deposit(r.Context(), req.UserID, req.Currency, req.Amount, req.TxHash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		s.writeError(w, errBadBody)
		return
	}

	var req resolveWithdrawalRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.casino.ResolveWithdrawal(r.Context(), entryID, *req.Approve); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
