package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/airbusgeo/ee-ingester/common"
	"github.com/airbusgeo/ee-ingester/interface/provider"
	"github.com/airbusgeo/ee-ingester/service"
	"github.com/airbusgeo/ee-ingester/service/log"
	"github.com/gorilla/mux"
)

func (wf *Workflow) NewHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/task/{task}", wf.GetTaskHandler).Methods("GET")
	r.HandleFunc("/task/{task}/wait", wf.WaitTaskHandler).Methods("POST")
	r.HandleFunc("/tasks", wf.ListTasksHandler).Methods("GET")
	r.HandleFunc("/ingest", wf.IngestHandler).Methods("POST")
	r.HandleFunc("/upload", wf.UploadHandler).Methods("POST")
	r.HandleFunc("/asset/{asset:.*}", wf.GetAssetHandler).Methods("GET")
	r.HandleFunc("/quota", wf.GetQuotaHandler).Methods("GET")
	return r
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.WriteHeader(code)
	fmt.Fprintf(w, "%v", err)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// parseTimeout reads the timeout parameter (duration or seconds)
func parseTimeout(req *http.Request, defaultTimeout time.Duration) (time.Duration, error) {
	v := req.FormValue("timeout")
	if v == "" {
		return defaultTimeout, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

// GetTaskHandler polls the status of a task
func (wf *Workflow) GetTaskHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	taskID := mux.Vars(req)["task"]
	status, err := wf.PollTaskState(ctx, taskID)
	var errFailed ErrTaskFailed
	if err != nil && !errors.As(err, &errFailed) {
		log.Logger(ctx).Sugar().Warnf("wf.PollTaskState: %v", err)
		writeError(w, 500, err)
		return
	}
	writeJSON(w, status)
}

// WaitTaskHandler waits for a task to reach a terminal state
func (wf *Workflow) WaitTaskHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	taskID := mux.Vars(req)["task"]
	timeout, err := parseTimeout(req, DefaultTimeout)
	if err != nil {
		writeError(w, 400, err)
		return
	}
	outcome, err := wf.WaitForTasks(ctx, []string{taskID}, timeout)
	var (
		errFailed  ErrTaskFailed
		errTimeout ErrTimeout
	)
	if err != nil && !errors.As(err, &errFailed) && !errors.As(err, &errTimeout) {
		log.Logger(ctx).Sugar().Warnf("wf.WaitForTasks: %v", err)
		writeError(w, 500, err)
		return
	}
	writeJSON(w, outcome)
}

// ListTasksHandler lists the tasks of the journal
// asset [optional] pattern of the assets
// state [optional] filters on the state
func (wf *Workflow) ListTasksHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if wf.journal == nil {
		writeError(w, 404, fmt.Errorf("no task journal"))
		return
	}
	var state *common.TaskState
	if s := req.FormValue("state"); s != "" {
		st, err := common.TaskStateString(s)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		state = &st
	}
	tasks, err := wf.journal.Tasks(ctx, req.FormValue("asset"), state)
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("wf.Tasks: %v", err)
		writeError(w, 500, err)
		return
	}
	writeJSON(w, tasks)
}

// IngestRequest is the body of the ingestion requests
type IngestRequest struct {
	// URI of a staged object (/ingest) or a local or remote file (/upload)
	URI   string `json:"uri"`
	Asset string `json:"asset"`
	// Date [optional] epoch milliseconds or a date
	Date  string   `json:"date,omitempty"`
	Bands []string `json:"bands,omitempty"`
	// Wait [optional] seconds to wait for the completion
	Wait   float64 `json:"wait,omitempty"`
	Public bool    `json:"public,omitempty"`
}

func (r IngestRequest) parse() (common.TemporalTag, time.Duration, error) {
	if r.URI == "" || r.Asset == "" {
		return common.NoTemporalTag, 0, fmt.Errorf("uri and asset are required")
	}
	tag := common.NoTemporalTag
	if r.Date != "" {
		var err error
		if tag, err = common.ParseTemporalTag(r.Date); err != nil {
			return tag, 0, err
		}
	}
	return tag, time.Duration(r.Wait * float64(time.Second)), nil
}

func decodeIngestRequest(w http.ResponseWriter, req *http.Request) (IngestRequest, common.TemporalTag, time.Duration, bool) {
	var ireq IngestRequest
	if err := json.NewDecoder(req.Body).Decode(&ireq); err != nil {
		writeError(w, 400, err)
		return ireq, common.NoTemporalTag, 0, false
	}
	tag, wait, err := ireq.parse()
	if err != nil {
		writeError(w, 400, err)
		return ireq, tag, wait, false
	}
	return ireq, tag, wait, true
}

// IngestHandler submits the ingestion of a staged object
func (wf *Workflow) IngestHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ireq, tag, wait, ok := decodeIngestRequest(w, req)
	if !ok {
		return
	}
	taskID, err := wf.IngestAsset(ctx, ireq.URI, ireq.Asset, tag, wait, common.BandsFromNames(ireq.Bands))
	if taskID == "" {
		log.Logger(ctx).Sugar().Warnf("wf.IngestAsset: %v", err)
		writeError(w, 500, err)
		return
	}
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("wf.IngestAsset: %v", err)
	}
	if ireq.Public {
		if err := wf.SetACL(ctx, ireq.Asset, common.ACLPublic(), false); err != nil {
			log.Logger(ctx).Sugar().Warnf("wf.SetACL: %v", err)
		}
	}
	writeJSON(w, map[string]string{"task_id": taskID})
}

// checkLocalSource returns an error if src is a local file that is not in the working directory
func (wf *Workflow) checkLocalSource(src string) error {
	file, ok := provider.LocalPath(src)
	if !ok {
		return nil
	}
	if wf.workDir == "" {
		return fmt.Errorf("local sources are not allowed: %s", src)
	}
	dir, err := filepath.Abs(wf.workDir)
	if err == nil {
		dir, err = filepath.EvalSymlinks(dir)
	}
	if err != nil {
		return fmt.Errorf("checkLocalSource: %w", err)
	}
	if file, err = filepath.Abs(file); err == nil {
		file, err = filepath.EvalSymlinks(file)
	}
	if err != nil {
		return fmt.Errorf("checkLocalSource: %w", err)
	}
	if !service.PathWithin(dir, file) {
		return fmt.Errorf("local source %s is not in the working directory", src)
	}
	return nil
}

// UploadHandler fetches a remote file (or a local file of the working directory) and uploads it
func (wf *Workflow) UploadHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ireq, tag, wait, ok := decodeIngestRequest(w, req)
	if !ok {
		return
	}
	if err := wf.checkLocalSource(ireq.URI); err != nil {
		writeError(w, 400, err)
		return
	}
	local, cleanup, err := provider.Fetch(ctx, ireq.URI, wf.workDir)
	if err != nil {
		writeError(w, 400, err)
		return
	}
	defer cleanup()
	opts := UploadOptions{Public: ireq.Public, Timeout: wait, Cleanup: true, Bands: common.BandsFromNames(ireq.Bands)}
	outcome, err := wf.UploadSingle(ctx, local, ireq.Asset, tag, opts)
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("wf.UploadSingle: %v", err)
		writeError(w, 500, err)
		return
	}
	writeJSON(w, outcome)
}

// GetAssetHandler retrieves the metadata of an asset
func (wf *Workflow) GetAssetHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	asset, err := wf.Info(ctx, mux.Vars(req)["asset"])
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("wf.Info: %v", err)
		writeError(w, 500, err)
		return
	}
	if asset == nil {
		w.WriteHeader(404)
		return
	}
	writeJSON(w, asset)
}

// GetQuotaHandler retrieves the quota of the home directory
func (wf *Workflow) GetQuotaHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	quota, err := wf.Quota(ctx)
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("wf.Quota: %v", err)
		writeError(w, 500, err)
		return
	}
	writeJSON(w, quota)
}
