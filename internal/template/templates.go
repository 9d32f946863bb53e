package template

// The two campaign bodies. Inline styles only; email clients strip
// stylesheets. The {{email}} binding re-emits the recipient
// placeholder so it survives composition untouched.

const blogPostTemplate = `
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{ title }}</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: #ffffff; border: 1px solid #e5e7eb; border-radius: 8px; padding: 24px;">
    <h1 style="color: #000; font-size: 24px; font-weight: 600; margin: 0 0 16px 0;">New Blog Post: {{ title }}</h1>
{% if has_cover %}
    <div style="margin: 0 0 20px 0;">
      <img src="{{ cover_image }}" alt="{{ title }}" style="width: 100%; height: auto; border-radius: 6px;" />
    </div>
{% endif %}
    <p style="color: #666; font-size: 16px; margin: 0 0 20px 0;">{{ excerpt }}</p>

    <div style="margin: 24px 0; padding: 16px; background: #f9fafb; border-radius: 6px;">
      <p style="margin: 0 0 8px 0; font-size: 14px; color: #666;">
        <strong>Author:</strong> {{ author_names | default: default_author }}
      </p>
      <p style="margin: 0; font-size: 14px; color: #666;">
        <strong>Published:</strong> {{ published_date }}
      </p>
    </div>

    <a href="{{ site_url }}/blog/{{ slug | urlencode }}" style="display: inline-block; background: #3b82f6; color: #ffffff; text-decoration: none; padding: 12px 24px; border-radius: 6px; font-weight: 500; margin: 20px 0;">
      Read Full Article &rarr;
    </a>

    <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;" />

    <p style="font-size: 12px; color: #999; margin: 0;">
      You're receiving this because you subscribed to the Converze newsletter.<br />
      <a href="{{ site_url }}/unsubscribe?email={{ email }}" style="color: #3b82f6; text-decoration: none;">Unsubscribe</a>
    </p>
  </div>
</body>
</html>
`

const customTemplate = `
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: #ffffff; border: 1px solid #e5e7eb; border-radius: 8px; padding: 24px;">
    <div style="white-space: pre-wrap; font-size: 16px; margin: 0 0 24px 0;">{{ message }}</div>
{% if has_cta %}
    <a href="{{ cta_url }}" style="display: inline-block; background: #3b82f6; color: #ffffff; text-decoration: none; padding: 12px 24px; border-radius: 6px; font-weight: 500;">
      {{ cta_text }} &rarr;
    </a>
{% endif %}
    <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;" />

    <p style="font-size: 12px; color: #999; margin: 0;">
      You're receiving this because you subscribed to the Converze newsletter.<br />
      <a href="{{ site_url }}/unsubscribe?email={{ email }}" style="color: #3b82f6; text-decoration: none;">Unsubscribe</a>
    </p>
  </div>
</body>
</html>
`
