// Package httpapi translates JSON HTTP requests into calls against a
// runtime.Context, in the teacher's gateway/routes convention of one
// handler type per resource family backed by encoding/json rather than a
// generated RPC stub.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/icn-project/icn-core/execution"
	"github.com/icn-project/icn-core/governance"
	"github.com/icn-project/icn-core/identity"
	"github.com/icn-project/icn-core/runtime"
)

// API holds the collaborators every handler needs.
type API struct {
	rt       *runtime.Context
	requests *prometheus.CounterVec
}

// New constructs an API bound to rt, recording per-route request counts
// into requests.
func New(rt *runtime.Context, requests *prometheus.CounterVec) *API {
	return &API{rt: rt, requests: requests}
}

// Mount registers every route this gateway exposes onto r.
func (a *API) Mount(r chi.Router) {
	r.Get("/v1/did/{did}", a.resolveDid)
	r.Post("/v1/jobs", a.deployJob)
	r.Post("/v1/jobs/{cid}/run", a.runJob)
	r.Post("/v1/governance/proposals", a.submitProposal)
	r.Post("/v1/governance/proposals/{id}/votes", a.vote)
}

func (a *API) observe(route string, status int) {
	class := "2xx"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	}
	a.requests.WithLabelValues(route, class).Inc()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *API) resolveDid(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "did")
	did, err := identity.ParseDid(raw)
	if err != nil {
		a.observe("resolve_did", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vk, err := a.rt.Trust.Resolver.Resolve(did)
	if err != nil {
		a.observe("resolve_did", http.StatusNotFound)
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	a.observe("resolve_did", http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]string{
		"did":           did.String(),
		"verifying_key": encodeHex(vk.Bytes()),
	})
}

type deployJobRequest struct {
	Deployer  string `json:"deployer"`
	CodeHex   string `json:"code_hex"`
	MaxMemory uint32 `json:"max_memory_bytes"`
}

func (a *API) deployJob(w http.ResponseWriter, r *http.Request) {
	var req deployJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.observe("deploy_job", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	deployer, err := identity.ParseDid(req.Deployer)
	if err != nil {
		a.observe("deploy_job", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	code, err := decodeHex(req.CodeHex)
	if err != nil {
		a.observe("deploy_job", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "invalid code_hex")
		return
	}
	maxMemory := req.MaxMemory
	if maxMemory == 0 {
		maxMemory = execution.DefaultResourceLimits.MaxMemoryBytes
	}

	manifestCid, err := a.rt.Executor.Deploy(code, deployer, maxMemory)
	if err != nil {
		a.observe("deploy_job", http.StatusUnprocessableEntity)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	a.observe("deploy_job", http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]string{"manifest_cid": manifestCid})
}

type runJobRequest struct {
	Caller string `json:"caller"`
}

func (a *API) runJob(w http.ResponseWriter, r *http.Request) {
	manifestCid := chi.URLParam(r, "cid")
	var req runJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.observe("run_job", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := identity.ParseDid(req.Caller)
	if err != nil {
		a.observe("run_job", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	job := execution.Job{ManifestCid: manifestCid, Limits: execution.DefaultResourceLimits}
	receipt, err := a.rt.Executor.ExecuteJob(ctx, job, caller)
	if err != nil {
		a.observe("run_job", http.StatusUnprocessableEntity)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	a.observe("run_job", http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":       receipt.JobID,
		"executor_did": receipt.ExecutorDid.String(),
		"result_cid":   receipt.ResultCid,
		"cpu_ms":       receipt.CpuMs,
		"success":      receipt.Success,
		"signature":    encodeHex(receipt.Signature),
	})
}

type submitProposalRequest struct {
	Proposer     string `json:"proposer"`
	Content      string `json:"content"`
	DeadlineUnix int64  `json:"deadline_unix"`
}

func (a *API) submitProposal(w http.ResponseWriter, r *http.Request) {
	var req submitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.observe("submit_proposal", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	proposer, err := identity.ParseDid(req.Proposer)
	if err != nil {
		a.observe("submit_proposal", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	deadline := time.Unix(req.DeadlineUnix, 0).UTC()
	id, err := a.rt.Governance.SubmitProposal(proposer, "default-federation", identity.ContextGovernance, req.Content, governance.RulePlain, deadline, time.Now().UTC())
	if err != nil {
		a.observe("submit_proposal", http.StatusUnprocessableEntity)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	a.observe("submit_proposal", http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]string{"proposal_id": id})
}

type voteRequest struct {
	Voter  string `json:"voter"`
	Option string `json:"option"`
}

func (a *API) vote(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "id")
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.observe("vote", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	voter, err := identity.ParseDid(req.Voter)
	if err != nil {
		a.observe("vote", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opt := governance.Option(req.Option)
	if !opt.Valid() {
		a.observe("vote", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "option must be yes, no, or abstain")
		return
	}
	ballot := governance.Ballot{Kind: governance.BallotPlain, PlainOption: opt, Voter: voter}
	if err := a.rt.Governance.Vote(voter, proposalID, ballot, time.Now().UTC()); err != nil {
		a.observe("vote", http.StatusUnprocessableEntity)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	a.observe("vote", http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}
