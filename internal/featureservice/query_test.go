package featureservice

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/basinlabs/geoframe/internal/frame"
)

// pagedLayer fakes a three-feature point layer with maxRecordCount 2.
func pagedLayer(t *testing.T, paginated bool) *httptest.Server {
	t.Helper()

	info := fmt.Sprintf(`{
	  "name": "Stations",
	  "geometryType": "esriGeometryPoint",
	  "maxRecordCount": 2,
	  "fields": [
	    {"name": "OBJECTID", "type": "esriFieldTypeOID"},
	    {"name": "NAME", "type": "esriFieldTypeString"}
	  ],
	  "extent": {"spatialReference": {"wkid": 102100, "latestWkid": 3857}},
	  "advancedQueryCapabilities": {"supportsPagination": %v}
	}`, paginated)

	features := []string{
		`{"attributes": {"OBJECTID": 1, "NAME": "A"}, "geometry": {"x": 10.0, "y": 20.0}}`,
		`{"attributes": {"OBJECTID": 2, "NAME": "B"}, "geometry": {"x": 11.0, "y": 21.0}}`,
		`{"attributes": {"OBJECTID": 3, "NAME": "C"}, "geometry": {"x": 12.0, "y": 22.0}}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/layer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, info)
	})
	mux.HandleFunc("/layer/query", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("returnCountOnly") == "true":
			fmt.Fprint(w, `{"count": 3}`)
		case q.Get("returnIdsOnly") == "true":
			fmt.Fprint(w, `{"objectIds": [1, 2, 3]}`)
		case q.Get("objectIds") != "":
			switch q.Get("objectIds") {
			case "1,2":
				fmt.Fprintf(w, `{"features": [%s, %s]}`, features[0], features[1])
			case "3":
				fmt.Fprintf(w, `{"features": [%s]}`, features[2])
			default:
				t.Errorf("unexpected objectIds %q", q.Get("objectIds"))
			}
		default:
			offset, _ := strconv.Atoi(q.Get("resultOffset"))
			count, _ := strconv.Atoi(q.Get("resultRecordCount"))
			end := offset + count
			if end > len(features) {
				end = len(features)
			}
			fmt.Fprint(w, `{"features": [`)
			for i := offset; i < end; i++ {
				if i > offset {
					fmt.Fprint(w, ",")
				}
				fmt.Fprint(w, features[i])
			}
			fmt.Fprint(w, `]}`)
		}
	})
	return httptest.NewServer(mux)
}

func TestQuery_Paged(t *testing.T) {
	srv := pagedLayer(t, true)
	defer srv.Close()

	c := NewClient(srv.URL+"/layer", Options{})
	f, err := c.Query(context.Background(), QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Stations", f.Name())
	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, frame.SRIDWebMercator, f.SRID())

	name, ok := f.Column("NAME")
	require.True(t, ok)
	// Pages are reassembled in offset order.
	assert.Equal(t, []any{"A", "B", "C"}, name.Values)

	oid, ok := f.Column("OBJECTID")
	require.True(t, ok)
	assert.Equal(t, frame.KindInt, oid.Kind)
	assert.Equal(t, int64(1), oid.Values[0])

	pt, ok := f.Geometry(2).(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 12.0, pt.X())
}

func TestQuery_ObjectIDFallback(t *testing.T) {
	srv := pagedLayer(t, false)
	defer srv.Close()

	c := NewClient(srv.URL+"/layer", Options{})
	f, err := c.Query(context.Background(), QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, f.NumRows())
	name, _ := f.Column("NAME")
	assert.Equal(t, []any{"A", "B", "C"}, name.Values)
}

func TestQuery_WindowTruncatedAtTransferLimit(t *testing.T) {
	features := []string{
		`{"attributes": {"OBJECTID": 1, "NAME": "A"}, "geometry": {"x": 10.0, "y": 20.0}}`,
		`{"attributes": {"OBJECTID": 2, "NAME": "B"}, "geometry": {"x": 11.0, "y": 21.0}}`,
		`{"attributes": {"OBJECTID": 3, "NAME": "C"}, "geometry": {"x": 12.0, "y": 22.0}}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/layer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
		  "name": "Stations",
		  "geometryType": "esriGeometryPoint",
		  "maxRecordCount": 3,
		  "fields": [
		    {"name": "OBJECTID", "type": "esriFieldTypeOID"},
		    {"name": "NAME", "type": "esriFieldTypeString"}
		  ],
		  "extent": {"spatialReference": {"wkid": 4326}},
		  "advancedQueryCapabilities": {"supportsPagination": false}
		}`)
	})
	mux.HandleFunc("/layer/query", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("returnIdsOnly") == "true":
			fmt.Fprint(w, `{"objectIds": [1, 2, 3]}`)
		// The server cuts the full-window request off after two features.
		case q.Get("objectIds") == "1,2,3":
			fmt.Fprintf(w, `{"exceededTransferLimit": true, "features": [%s, %s]}`,
				features[0], features[1])
		case q.Get("objectIds") == "3":
			fmt.Fprintf(w, `{"features": [%s]}`, features[2])
		default:
			t.Errorf("unexpected objectIds %q", q.Get("objectIds"))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL+"/layer", Options{})
	f, err := c.Query(context.Background(), QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, f.NumRows())
	name, _ := f.Column("NAME")
	assert.Equal(t, []any{"A", "B", "C"}, name.Values)
}

func TestQuery_Empty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/layer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
		  "name": "Empty",
		  "fields": [{"name": "OBJECTID", "type": "esriFieldTypeOID"}],
		  "advancedQueryCapabilities": {"supportsPagination": true}
		}`)
	})
	mux.HandleFunc("/layer/query", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count": 0}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL+"/layer", Options{})
	f, err := c.Query(context.Background(), QueryOptions{Where: "1=0"})
	require.NoError(t, err)
	assert.Equal(t, 0, f.NumRows())
}
