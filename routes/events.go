package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eventboard/feed"
	"eventboard/models"
)

// eventRequest is the editable field set. Owner, id, creation instant and
// the liked-by set are never taken from the request body.
type eventRequest struct {
	Title     string    `json:"title" binding:"required"`
	URL       string    `json:"url"`
	ImageURL  string    `json:"imageUrl"`
	DateStart time.Time `json:"dateStart" binding:"required"`
	DateEnd   time.Time `json:"dateEnd" binding:"required"`
	Design    bool      `json:"design"`
	Coding    bool      `json:"coding"`
	Other     bool      `json:"other"`
}

func parseGenres(raw string) []string {
	if raw == "" {
		return nil
	}
	var genres []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	return genres
}

// GET /events?q=...&genres=design,coding
func (d *deps) getEvents(c *gin.Context) {
	all := d.mirror.Events()
	visible := feed.Visible(all, c.Query("q"), parseGenres(c.Query("genres")))
	c.JSON(http.StatusOK, visible)
}

// GET /events/:id
func (d *deps) getEvent(c *gin.Context) {
	event, err := d.events.GetByID(c.Param("id"))
	if err != nil {
		if err == models.ErrEventNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Event not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch event. Try again later."})
		return
	}
	c.JSON(http.StatusOK, event)
}

// POST /events
func (d *deps) createEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	event := models.Event{
		ID:        uuid.NewString(),
		Title:     req.Title,
		URL:       req.URL,
		ImageURL:  req.ImageURL,
		DateStart: req.DateStart,
		DateEnd:   req.DateEnd,
		UID:       currentUID(c),
		CreatedAt: time.Now(),
		Design:    req.Design,
		Coding:    req.Coding,
		Other:     req.Other,
		Likes:     []string{},
	}
	event.RepairDates()

	if err := d.events.Create(&event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create event. Try again later."})
		return
	}

	if d.inv != nil {
		d.inv.PurgeEventsList(c)
		d.inv.PurgeEventItem(c, event.ID)
	}
	c.JSON(http.StatusCreated, gin.H{"message": "event created!", "event": event})
}

// PUT /events/:id
func (d *deps) updateEvent(c *gin.Context) {
	id := c.Param("id")

	old, err := d.events.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch the event. Try again later."})
		return
	}
	if old.UID != currentUID(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized to update event."})
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	// Owner, creation instant and likes survive an edit untouched.
	updated := models.Event{
		ID:        id,
		Title:     req.Title,
		URL:       req.URL,
		ImageURL:  req.ImageURL,
		DateStart: req.DateStart,
		DateEnd:   req.DateEnd,
		UID:       old.UID,
		CreatedAt: old.CreatedAt,
		Design:    req.Design,
		Coding:    req.Coding,
		Other:     req.Other,
		Likes:     old.Likes,
	}
	updated.RepairDates()

	if err := d.events.Update(&updated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not update event. Try again later."})
		return
	}

	if d.inv != nil {
		d.inv.PurgeEventsList(c)
		d.inv.PurgeEventItem(c, id)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event updated successfully!"})
}

// DELETE /events/:id
func (d *deps) deleteEvent(c *gin.Context) {
	id := c.Param("id")

	ev, err := d.events.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch the event. Try again later."})
		return
	}
	if ev.UID != currentUID(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized to delete event."})
		return
	}

	if err := d.events.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not delete the event."})
		return
	}

	if d.inv != nil {
		d.inv.PurgeEventsList(c)
		d.inv.PurgeEventItem(c, id)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully!"})
}

// POST /events/:id/like
func (d *deps) likeEvent(c *gin.Context) {
	if err := d.mirror.ToggleLike(c.Param("id"), currentUID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not toggle like. Try again later."})
		return
	}

	if d.inv != nil {
		d.inv.PurgeEventsList(c)
		d.inv.PurgeEventItem(c, c.Param("id"))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Like toggled!"})
}

// GET /me/events
func (d *deps) myEvents(c *gin.Context) {
	events, err := d.events.Find(models.EventScope{OwnerID: currentUID(c)})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch events. Try again later."})
		return
	}
	feed.SortByStartDesc(events)
	c.JSON(http.StatusOK, events)
}

// GET /me/liked
func (d *deps) likedEvents(c *gin.Context) {
	events, err := d.events.Find(models.EventScope{LikedBy: currentUID(c)})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch events. Try again later."})
		return
	}
	feed.SortByStartDesc(events)
	c.JSON(http.StatusOK, events)
}
