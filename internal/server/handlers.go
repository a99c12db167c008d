package server

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"veriledger/internal/access"
	"veriledger/internal/errs"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"epoch":  s.clock.Current(),
	})
}

func (s *Server) handleEpoch(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]uint64{"epoch": s.clock.Current()})
}

func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sensor, found := s.ledger.Sensor(id)
	if !found {
		respondNotFound(w, fmt.Sprintf("sensor %d has no record", id))
		return
	}
	respondJSON(w, http.StatusOK, sensor)
}

func (s *Server) handleReporter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	grant, found := s.acl.Grant(access.Principal(name))
	if !found {
		respondNotFound(w, fmt.Sprintf("reporter %q has no grant", name))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"reporter":    grant.Reporter,
		"authorized":  grant.Authorized,
		"inventories": sortedIDs(grant.Inventories),
		"last_report": grant.LastReport,
	})
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, found := s.ledger.Inventory(id)
	if !found {
		respondNotFound(w, fmt.Sprintf("inventory %d has no record", id))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"inventory": inv,
		"sensors":   inv.Sensors(),
	})
}

// handleInventoryValue reports the trusted value of an inventory. A stale or
// missing verification yields valid=false with no value, never a zero that
// could be mistaken for a real appraisal.
func (s *Server) handleInventoryValue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, found := s.ledger.Inventory(id); !found {
		respondNotFound(w, fmt.Sprintf("inventory %d has no record", id))
		return
	}
	value, valid := s.ledger.InventoryValue(id)
	body := map[string]any{"inventory_id": id, "valid": valid}
	if valid {
		body["total_value"] = value
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleValidity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, found := s.ledger.Inventory(id); !found {
		respondNotFound(w, fmt.Sprintf("inventory %d has no record", id))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"inventory_id":    id,
		"valid":           s.ledger.IsVerificationValid(id),
		"validity_period": s.ledger.ValidityPeriod(),
		"epoch":           s.clock.Current(),
	})
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	invID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	item, found := s.ledger.Item(invID, itemID)
	if !found {
		respondNotFound(w, fmt.Sprintf("item %d has no record under inventory %d", itemID, invID))
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleVerification(w http.ResponseWriter, r *http.Request) {
	invID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	verID, ok := pathID(w, r, "verificationID")
	if !ok {
		return
	}
	rec, found := s.ledger.Verification(invID, verID)
	if !found {
		respondNotFound(w, fmt.Sprintf("verification %d has no record for inventory %d", verID, invID))
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	invID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	category := chi.URLParam(r, "category")
	cat, found := s.engine.CategoryPerformance(invID, category)
	if !found {
		respondNotFound(w, fmt.Sprintf("category %q has no sales under inventory %d", category, invID))
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	invID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	metrics, found := s.engine.Metrics(invID)
	if !found {
		respondNotFound(w, fmt.Sprintf("inventory %d is not tracked", invID))
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// handleRisk never 404s for tracked-or-not inventories: an unknown or
// unanalyzed inventory is a legitimate answer, reported as no-data with
// worst-case risk.
func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	invID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.engine.RiskAssessment(invID))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	invID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	analysisEpoch, ok := pathID(w, r, "epoch")
	if !ok {
		return
	}
	snap, found := s.engine.HistoryAt(invID, analysisEpoch)
	if !found {
		respondNotFound(w, fmt.Sprintf("inventory %d has no analysis at epoch %d", invID, analysisEpoch))
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sale, found := s.engine.Sale(id)
	if !found {
		respondNotFound(w, fmt.Sprintf("sale %d has no record", id))
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

// pathID parses a numeric URL parameter, answering 400 itself on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondError(w, errs.InvalidData(fmt.Sprintf("parameter %s must be a non-negative integer", name)).
			WithDetail("got", raw))
		return 0, false
	}
	return id, true
}

func sortedIDs(set map[uint64]struct{}) []uint64 {
	out := make([]uint64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
