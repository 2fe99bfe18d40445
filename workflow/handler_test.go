package workflow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/ee-ingester/catalog"
	"github.com/airbusgeo/ee-ingester/common"
	"github.com/airbusgeo/ee-ingester/interface/catalog/catalogtest"
	db "github.com/airbusgeo/ee-ingester/interface/database"
	"github.com/airbusgeo/ee-ingester/service"
	"github.com/airbusgeo/ee-ingester/workflow"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handler", func() {
	var (
		svc     *catalogtest.Service
		bucket  *countingBucket
		journal *memJournal
		tmpDir  string
		handler http.Handler
	)

	serve := func(method, target, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
		} else {
			req = httptest.NewRequest(method, target, nil)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "handler")
		Expect(err).NotTo(HaveOccurred())
		svc = catalogtest.New("users/me")
		bucket = newCountingBucket(filepath.Join(tmpDir, "bucket"))
		Expect(service.EnsureBucket(context.Background(), bucket)).To(Succeed())
		journal = newMemJournal()
		wf := workflow.New(catalog.New(svc, ""), service.NewStager(bucket, 2), workflow.Options{
			PollInterval: pollInterval,
			Clock:        newFakeClock(),
			Journal:      journal,
			WorkDir:      tmpDir,
		})
		handler = wf.NewHandler()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("should submit an ingestion", func() {
		rec := serve("POST", "/ingest", `{"uri":"gs://mybucket/a.tif","asset":"col/a","date":"2020-01-01","bands":["b1"]}`)
		Expect(rec.Code).To(Equal(200))
		var resp map[string]string
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["task_id"]).To(Equal("TASK1"))

		req := svc.Requests["TASK1"]
		Expect(req.ID).To(Equal("users/me/col/a"))
		Expect(req.Properties[common.PropTimeStart]).To(Equal(int64(1577836800000)))
		Expect(req.Bands).To(Equal([]common.Band{{ID: "b1"}}))
	})

	It("should reject an invalid ingestion", func() {
		Expect(serve("POST", "/ingest", `{"asset":"col/a"}`).Code).To(Equal(400))
		Expect(serve("POST", "/ingest", `{"uri":"gs://b/a.tif","asset":"a","date":"not a date"}`).Code).To(Equal(400))
		Expect(serve("POST", "/ingest", `not json`).Code).To(Equal(400))
		Expect(svc.CallsTo("StartIngestion")).To(Equal(0))
	})

	It("should report the submission errors", func() {
		svc.SubmitErr = os.ErrPermission
		Expect(serve("POST", "/ingest", `{"uri":"gs://b/a.tif","asset":"a"}`).Code).To(Equal(500))
	})

	It("should poll and wait for a task", func() {
		svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StateRUNNING, common.StateFAILED}
		svc.MessagesByAsset["users/me/a"] = "invalid file"
		Expect(serve("POST", "/ingest", `{"uri":"gs://b/a.tif","asset":"a"}`).Code).To(Equal(200))

		rec := serve("GET", "/task/TASK1", "")
		Expect(rec.Code).To(Equal(200))
		var status common.TaskStatus
		Expect(json.Unmarshal(rec.Body.Bytes(), &status)).To(Succeed())
		Expect(status).To(Equal(common.TaskStatus{ID: "TASK1", State: common.StateRUNNING}))

		rec = serve("POST", "/task/TASK1/wait?timeout=60", "")
		Expect(rec.Code).To(Equal(200))
		var outcome workflow.Outcome
		Expect(json.Unmarshal(rec.Body.Bytes(), &outcome)).To(Succeed())
		Expect(outcome.States).To(Equal(map[string]common.TaskState{"TASK1": common.StateFAILED}))

		Expect(serve("POST", "/task/TASK1/wait?timeout=soon", "").Code).To(Equal(400))
		Expect(serve("GET", "/task/UNKNOWN", "").Code).To(Equal(500))
	})

	It("should list the journaled tasks", func() {
		Expect(serve("POST", "/ingest", `{"uri":"gs://b/a.tif","asset":"col/a"}`).Code).To(Equal(200))
		Expect(serve("POST", "/ingest", `{"uri":"gs://b/b.tif","asset":"other/b"}`).Code).To(Equal(200))
		Expect(serve("GET", "/task/TASK1", "").Code).To(Equal(200))

		rec := serve("GET", "/tasks?asset=users/me/col/*", "")
		Expect(rec.Code).To(Equal(200))
		var tasks []db.Task
		Expect(json.Unmarshal(rec.Body.Bytes(), &tasks)).To(Succeed())
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].ID).To(Equal("TASK1"))
		Expect(tasks[0].State).To(Equal(common.StateCOMPLETED))

		rec = serve("GET", "/tasks?state=PENDING", "")
		Expect(rec.Code).To(Equal(200))
		Expect(json.Unmarshal(rec.Body.Bytes(), &tasks)).To(Succeed())
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].ID).To(Equal("TASK2"))

		Expect(serve("GET", "/tasks?state=DONE", "").Code).To(Equal(400))
	})

	It("should upload a local file", func() {
		file := createLocalFiles(tmpDir, "a.tif")[0]
		rec := serve("POST", "/upload", `{"uri":"`+file+`","asset":"a","wait":30,"public":true}`)
		Expect(rec.Code).To(Equal(200))
		var outcome workflow.Outcome
		Expect(json.Unmarshal(rec.Body.Bytes(), &outcome)).To(Succeed())
		Expect(outcome.AllCompleted()).To(BeTrue())
		Expect(svc.ACLs["users/me/a"].AllUsersCanRead).To(BeTrue())
		Expect(bucket.deletions()).To(Equal(1))
		_, err := os.Stat(file)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject the local files outside of the working directory", func() {
		outside, err := os.MkdirTemp("", "outside")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(outside)
		secret := createLocalFiles(outside, "secret.json")[0]
		for _, uri := range []string{secret, "file://" + secret, filepath.Join(tmpDir, "..", filepath.Base(outside), "secret.json"), filepath.Join(tmpDir, "missing.tif")} {
			rec := serve("POST", "/upload", `{"uri":"`+uri+`","asset":"leak","public":true}`)
			Expect(rec.Code).To(Equal(400), uri)
		}
		Expect(svc.CallsTo("StartIngestion")).To(Equal(0))
		Expect(svc.CallsTo("SetACL")).To(Equal(0))
		Expect(bucket.deletions()).To(Equal(0))
	})

	It("should reject an unsupported source", func() {
		Expect(serve("POST", "/upload", `{"uri":"s4://b/a.tif","asset":"a"}`).Code).To(Equal(400))
	})

	It("should retrieve an asset and the quota", func() {
		svc.Put(common.Asset{ID: "users/me/col", Type: common.AssetTypeImageCollection})
		rec := serve("GET", "/asset/col", "")
		Expect(rec.Code).To(Equal(200))
		var asset common.Asset
		Expect(json.Unmarshal(rec.Body.Bytes(), &asset)).To(Succeed())
		Expect(asset.Type).To(Equal(common.AssetTypeImageCollection))

		Expect(serve("GET", "/asset/missing", "").Code).To(Equal(404))

		rec = serve("GET", "/quota", "")
		Expect(rec.Code).To(Equal(200))
		var quota common.Quota
		Expect(json.Unmarshal(rec.Body.Bytes(), &quota)).To(Succeed())
		Expect(quota.AssetCount).To(BeNumerically(">=", 1))
	})

	It("should not serve unknown routes", func() {
		Expect(serve("GET", "/ingest", "").Code).To(Equal(405))
		Expect(serve("GET", "/nothing", "").Code).To(Equal(404))
	})
})
