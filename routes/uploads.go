package routes

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eventboard/storage"
)

// uploadRegistry keeps trackers addressable so a client can poll the
// lifecycle of an upload it started.
type uploadRegistry struct {
	mu       sync.Mutex
	trackers map[string]*storage.Tracker
}

func newUploadRegistry() *uploadRegistry {
	return &uploadRegistry{trackers: map[string]*storage.Tracker{}}
}

func (r *uploadRegistry) put(id string, t *storage.Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers[id] = t
}

func (r *uploadRegistry) get(id string) (*storage.Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[id]
	return t, ok
}

// POST /uploads
// Streams the multipart "file" to the blob store. On success the response
// carries the durable URL for the record's imageUrl field; on failure the
// caller must not proceed with the record save and retries by resubmitting.
func (d *deps) createUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not read uploaded file."})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not read uploaded file."})
		return
	}
	defer f.Close()

	id := uuid.NewString()
	tracker := storage.NewTracker(d.blobs, d.logger)
	d.uploads.put(id, tracker)

	url, err := tracker.Upload(c.Request.Context(), header.Filename, f, header.Size)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"message": "Upload failed.", "upload": gin.H{"id": id, "status": tracker.Status()}})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "url": url, "status": tracker.Status()})
}

// GET /uploads/:id
func (d *deps) getUpload(c *gin.Context) {
	tracker, ok := d.uploads.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Unknown upload."})
		return
	}
	c.JSON(http.StatusOK, tracker.Status())
}
