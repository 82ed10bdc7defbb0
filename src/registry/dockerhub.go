package registry

import (
	"context"
	"fmt"
	"time"
)

const hubAPI = "https://hub.docker.com/v2"

// DockerHub covers the tag list/delete surface retention needs. Pushes go
// through docker itself; this client only talks to the hub.docker.com v2
// API, which wants a session JWT from the login endpoint — deletes are not
// possible over plain registry v2 auth.
type DockerHub struct {
	client httpClient
	user   string
	pass   string
}

func NewDockerHub(user, pass string) *DockerHub {
	return &DockerHub{user: user, pass: pass}
}

func (d *DockerHub) Provider() string { return "dockerhub" }

// login exchanges the credentials for a session JWT on first use.
func (d *DockerHub) login(ctx context.Context) error {
	if _, ok := d.client.headers["Authorization"]; ok {
		return nil
	}
	if d.user == "" || d.pass == "" {
		return fmt.Errorf("dockerhub: tag management needs credentials, set the configured env prefix")
	}

	var session struct {
		Token string `json:"token"`
	}
	creds := map[string]string{"username": d.user, "password": d.pass}
	if _, err := d.client.doJSON(ctx, "POST", hubAPI+"/users/login/", creds, &session); err != nil {
		return fmt.Errorf("dockerhub: login: %w", err)
	}

	d.client.headers = map[string]string{"Authorization": "JWT " + session.Token}
	return nil
}

// tagPage mirrors one page of the hub tag listing. Next is null on the
// last page, which decodes to the empty string and ends the walk.
type tagPage struct {
	Next    string `json:"next"`
	Results []struct {
		Name        string    `json:"name"`
		Digest      string    `json:"digest"`
		LastUpdated time.Time `json:"last_updated"`
	} `json:"results"`
}

func (d *DockerHub) ListTags(ctx context.Context, repo string) ([]TagInfo, error) {
	if err := d.login(ctx); err != nil {
		return nil, err
	}

	var tags []TagInfo
	next := fmt.Sprintf("%s/repositories/%s/tags/?page_size=100&ordering=-last_updated", hubAPI, repo)
	for next != "" {
		var page tagPage
		if _, err := d.client.doJSON(ctx, "GET", next, nil, &page); err != nil {
			return nil, fmt.Errorf("dockerhub: listing tags for %s: %w", repo, err)
		}
		for _, t := range page.Results {
			tags = append(tags, TagInfo{Name: t.Name, Digest: t.Digest, CreatedAt: t.LastUpdated})
		}
		next = page.Next
	}
	return tags, nil
}

func (d *DockerHub) DeleteTag(ctx context.Context, repo string, tag string) error {
	if err := d.login(ctx); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/repositories/%s/tags/%s/", hubAPI, repo, tag)
	if _, err := d.client.doJSON(ctx, "DELETE", url, nil, nil); err != nil {
		return fmt.Errorf("dockerhub: deleting tag %s:%s: %w", repo, tag, err)
	}
	return nil
}
